package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/location"
)

type Categories interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type CatalogHandler struct {
	catalog   Categories
	locations *location.Resolver
	timeout   time.Duration
}

func NewCatalogHandler(catalog Categories, locations *location.Resolver, timeout time.Duration) *CatalogHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if locations == nil {
		locations = location.Default()
	}
	return &CatalogHandler{
		catalog:   catalog,
		locations: locations,
		timeout:   timeout,
	}
}

type LocationOptionsDTO struct {
	Level   string   `json:"level"`
	Options []string `json:"options"`
}

// GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		handleError(w, domain.Transport("list categories", err))
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// GET /api/v1/locations?state=&district=&taluka=
//
// The deepest supplied ancestor decides which level is listed.
func (h *CatalogHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var path []string
	for _, key := range []string{"state", "district", "taluka"} {
		v := q.Get(key)
		if v == "" {
			break
		}
		path = append(path, v)
	}

	level := location.Level(len(path))
	respondJSON(w, http.StatusOK, LocationOptionsDTO{
		Level:   level.String(),
		Options: h.locations.ChildrenOf(level, path...),
	})
}
