package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
)

const defaultTimeout = 30 * time.Second

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleError converts a service error to an HTTP status code.
func handleError(w http.ResponseWriter, err error) {
	var incomplete *domain.IncompleteAddressError
	if errors.As(err, &incomplete) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    "incomplete_address",
			Details: string(incomplete.Which),
		})
		return
	}

	var httpStatus int
	var code string

	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		httpStatus = http.StatusForbidden
		code = "permission_denied"
	case errors.Is(err, domain.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrDuplicateItem):
		httpStatus = http.StatusConflict
		code = "duplicate_item"
	case errors.Is(err, domain.ErrAlreadyInCart):
		httpStatus = http.StatusConflict
		code = "already_in_cart"
	case errors.Is(err, domain.ErrAlreadyWishlisted):
		httpStatus = http.StatusConflict
		code = "already_wishlisted"
	case errors.Is(err, domain.ErrIllegalTransition):
		httpStatus = http.StatusConflict
		code = "illegal_transition"
	case errors.Is(err, domain.ErrShippingLocked):
		httpStatus = http.StatusConflict
		code = "shipping_locked"
	case errors.Is(err, domain.ErrInvalidQuantity):
		httpStatus = http.StatusBadRequest
		code = "invalid_quantity"
	case errors.Is(err, domain.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
	case errors.Is(err, domain.ErrInvalidPayment):
		httpStatus = http.StatusBadRequest
		code = "invalid_payment"
	case errors.Is(err, domain.ErrUnknownLocation):
		httpStatus = http.StatusBadRequest
		code = "unknown_location"
	case errors.Is(err, domain.ErrUnknownField):
		httpStatus = http.StatusBadRequest
		code = "unknown_field"
	case errors.Is(err, domain.ErrConfirmationNeeded):
		httpStatus = http.StatusBadRequest
		code = "confirmation_required"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	case errors.Is(err, domain.ErrTransport):
		httpStatus = http.StatusBadGateway
		code = "upstream_error"
	default:
		slog.Error("unhandled error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
