// Package http exposes the storefront operations as a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Wishlist *WishlistHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	MetricsEnabled     bool
}

func NewRouter(h Handlers, verifier TokenVerifier, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(verifier))

		r.Get("/categories", h.Catalog.ListCategories)
		r.Get("/locations", h.Catalog.ListLocations)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Post("/refresh", h.Cart.Refresh)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.Wishlist.List)
			r.Post("/", h.Wishlist.Add)
			r.Delete("/{product_id}", h.Wishlist.Remove)
			r.Post("/{product_id}/move-to-cart", h.Wishlist.MoveToCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.Checkout.GetForm)
			r.Post("/prefill", h.Checkout.Prefill)
			r.Put("/billing", h.Checkout.UpdateBilling)
			r.Put("/shipping", h.Checkout.UpdateShipping)
			r.Put("/same-as-billing", h.Checkout.SetSameAsBilling)
			r.Put("/location", h.Checkout.SelectLocation)
			r.Put("/payment", h.Checkout.SelectPayment)
			r.Put("/payment/fields", h.Checkout.SetPaymentFields)
			r.Post("/preview", h.Checkout.Preview)
			r.Post("/orders", h.Checkout.PlaceOrder)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{order_id}", h.Orders.GetOrder)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Get("/", h.Orders.AdminBoard)
			r.Get("/{order_id}/transitions", h.Orders.Transitions)
			r.Put("/{order_id}/status", h.Orders.UpdateStatus)
			r.Delete("/{order_id}", h.Orders.DeleteOrder)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
