package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/location"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

type CheckoutService interface {
	Form(ctx context.Context) (*checkout.Form, error)
	Prefill(ctx context.Context) (*checkout.Form, error)
	UpdateAddress(ctx context.Context, kind domain.AddressKind, fields map[string]string) (*checkout.Form, error)
	SetSameAsBilling(ctx context.Context, on bool) (*checkout.Form, error)
	SelectLocation(ctx context.Context, kind domain.AddressKind, level location.Level, value string) (*checkout.Form, error)
	SelectPayment(ctx context.Context, method domain.PaymentMethod) (*checkout.Form, error)
	SetPaymentFields(ctx context.Context, fields map[string]string) (*checkout.Form, error)
	Assemble(ctx context.Context) (*domain.OrderRequest, error)
	PlaceOrder(ctx context.Context) (*checkout.Placement, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	log      *slog.Logger
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
		log:      logger,
	}
}

type SameAsBillingRequestDTO struct {
	Enabled bool `json:"enabled"`
}

type SelectLocationRequestDTO struct {
	Address string `json:"address"`
	Level   string `json:"level"`
	Value   string `json:"value"`
}

type SelectPaymentRequestDTO struct {
	Method string `json:"method"`
}

func (h *CheckoutHandler) respondForm(w http.ResponseWriter, form *checkout.Form, err error) {
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	form, err := h.checkout.Form(ctx)
	h.respondForm(w, form, err)
}

// POST /api/v1/checkout/prefill
func (h *CheckoutHandler) Prefill(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	form, err := h.checkout.Prefill(ctx)
	h.respondForm(w, form, err)
}

// PUT /api/v1/checkout/billing
func (h *CheckoutHandler) UpdateBilling(w http.ResponseWriter, r *http.Request) {
	h.updateAddress(w, r, domain.Billing)
}

// PUT /api/v1/checkout/shipping
func (h *CheckoutHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	h.updateAddress(w, r, domain.Shipping)
}

func (h *CheckoutHandler) updateAddress(w http.ResponseWriter, r *http.Request, kind domain.AddressKind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var fields map[string]string
	if err := decodeJSON(r, &fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	form, err := h.checkout.UpdateAddress(ctx, kind, fields)
	h.respondForm(w, form, err)
}

// PUT /api/v1/checkout/same-as-billing
func (h *CheckoutHandler) SetSameAsBilling(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SameAsBillingRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	form, err := h.checkout.SetSameAsBilling(ctx, req.Enabled)
	h.respondForm(w, form, err)
}

// PUT /api/v1/checkout/location
func (h *CheckoutHandler) SelectLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectLocationRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	kind := domain.AddressKind(req.Address)
	if kind != domain.Billing && kind != domain.Shipping {
		respondError(w, http.StatusBadRequest, "invalid_address", "address must be billing or shipping")
		return
	}
	level, err := location.ParseLevel(req.Level)
	if err != nil {
		handleError(w, err)
		return
	}

	form, err := h.checkout.SelectLocation(ctx, kind, level, req.Value)
	h.respondForm(w, form, err)
}

// PUT /api/v1/checkout/payment
func (h *CheckoutHandler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectPaymentRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	form, err := h.checkout.SelectPayment(ctx, domain.PaymentMethod(req.Method))
	h.respondForm(w, form, err)
}

// PUT /api/v1/checkout/payment/fields
func (h *CheckoutHandler) SetPaymentFields(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var fields map[string]string
	if err := decodeJSON(r, &fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	form, err := h.checkout.SetPaymentFields(ctx, fields)
	h.respondForm(w, form, err)
}

// POST /api/v1/checkout/preview
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, err := h.checkout.Assemble(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// POST /api/v1/checkout/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	placement, err := h.checkout.PlaceOrder(ctx)
	metrics.RecordOperation("place_order", err)
	if err != nil {
		h.log.Warn("order placement failed", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}

	h.log.Info("order placed",
		"request_id", getRequestID(r.Context()),
		"order_id", placement.OrderID,
		"idempotency_key", placement.Request.IdempotencyKey)
	respondJSON(w, http.StatusCreated, placement)
}
