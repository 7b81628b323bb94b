// Package events publishes order lifecycle events after the order collaborator
// has confirmed the change.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Topic = "storefront-orders"

type Type string

const (
	OrderPlaced        Type = "OrderPlaced"
	OrderStatusChanged Type = "OrderStatusChanged"
	OrderDeleted       Type = "OrderDeleted"
)

type Event struct {
	ID             string           `json:"event_id"`
	Type           Type             `json:"event_type"`
	OrderID        string           `json:"order_id"`
	UserID         string           `json:"user_id,omitempty"`
	Status         string           `json:"status,omitempty"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// New stamps a fresh event id and time.
func New(t Type, orderID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
