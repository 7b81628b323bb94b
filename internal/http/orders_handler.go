package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderEngine interface {
	History(ctx context.Context) ([]*orders.Order, error)
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Transitions(ctx context.Context, orderID string) ([]orders.Status, error)
	TransitionByID(ctx context.Context, orderID string, next orders.Status) (*orders.Order, error)
	Delete(ctx context.Context, orderID string, confirmed bool) error
}

type OrderBoard interface {
	Load(ctx context.Context) ([]orders.Entry, error)
}

type OrdersHandler struct {
	engine  OrderEngine
	board   OrderBoard
	timeout time.Duration
}

func NewOrdersHandler(engine OrderEngine, board OrderBoard, timeout time.Duration) *OrdersHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OrdersHandler{
		engine:  engine,
		board:   board,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type TransitionsResponseDTO struct {
	OrderID     string          `json:"order_id"`
	Transitions []orders.Status `json:"available_transitions"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.engine.History(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.engine.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/admin/orders
func (h *OrdersHandler) AdminBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entries, err := h.board.Load(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// GET /api/v1/admin/orders/{order_id}/transitions
func (h *OrdersHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	next, err := h.engine.Transitions(ctx, orderID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, TransitionsResponseDTO{OrderID: orderID, Transitions: next})
}

// PUT /api/v1/admin/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.engine.TransitionByID(ctx, chi.URLParam(r, "order_id"), orders.Status(req.Status))
	metrics.RecordOperation("order_transition", err)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// DELETE /api/v1/admin/orders/{order_id}?confirm=true
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	err := h.engine.Delete(ctx, chi.URLParam(r, "order_id"), confirmed)
	metrics.RecordOperation("order_delete", err)
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
