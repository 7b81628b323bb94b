package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type WishlistService interface {
	List(ctx context.Context) ([]domain.WishlistItem, error)
	Add(ctx context.Context, item domain.WishlistItem) ([]domain.WishlistItem, error)
	Remove(ctx context.Context, productID string) ([]domain.WishlistItem, error)
	MoveToCart(ctx context.Context, productID string) (*domain.Cart, error)
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type WishlistHandler struct {
	wishlist WishlistService
	products ProductLookup
	timeout  time.Duration
}

func NewWishlistHandler(wishlist WishlistService, products ProductLookup, timeout time.Duration) *WishlistHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WishlistHandler{
		wishlist: wishlist,
		products: products,
		timeout:  timeout,
	}
}

type AddWishlistRequestDTO struct {
	ProductID string `json:"product_id"`
}

// GET /api/v1/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.wishlist.List(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// POST /api/v1/wishlist
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := auth.RequireCustomer(ctx); err != nil {
		handleError(w, err)
		return
	}

	var req AddWishlistRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		if !isNotFound(err) {
			err = domain.Transport("get product", err)
		}
		handleError(w, err)
		return
	}

	items, err := h.wishlist.Add(ctx, domain.WishlistItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		ImageURL:  product.ImageURL,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, items)
}

// DELETE /api/v1/wishlist/{product_id}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.wishlist.Remove(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// POST /api/v1/wishlist/{product_id}/move-to-cart
func (h *WishlistHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.wishlist.MoveToCart(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(cart))
}
