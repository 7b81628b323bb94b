// Package orders implements the forward-only order status machine and the
// administrative order board.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
)

// Store is the order persistence collaborator. Not-found failures wrap
// domain.ErrNotFound. UpdateStatus writes to only while the stored status is
// still from and otherwise fails with an error wrapping
// domain.ErrIllegalTransition.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (Record, error)
	ListUserOrders(ctx context.Context, userID string) ([]Record, error)
	ListAllOrders(ctx context.Context) ([]Record, error)
	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type Engine struct {
	store     Store
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewEngine(store Store, publisher events.Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Engine{store: store, publisher: publisher, log: logger, now: time.Now}
}

// History lists the orders of the authenticated user.
func (e *Engine) History(ctx context.Context) ([]*Order, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.store.ListUserOrders(ctx, sess.UserID)
	if err != nil {
		return nil, domain.Transport("list user orders", err)
	}
	return restoreAll(records), nil
}

// Get loads one order. Only its owner or an admin may read it.
func (e *Engine) Get(ctx context.Context, orderID string) (*Order, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	order, err := e.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID() != sess.UserID && !sess.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

func (e *Engine) Transitions(ctx context.Context, orderID string) ([]Status, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	order, err := e.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return AvailableTransitions(order.Status()), nil
}

// Transition moves order to next. The status on order changes only after the
// store has confirmed the update.
func (e *Engine) Transition(ctx context.Context, order *Order, next Status) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}
	current := order.Status()
	if !CanTransition(current, next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, current, next)
	}

	if err := e.store.UpdateStatus(ctx, order.ID(), current, next); err != nil {
		return storeErr("update order status", err)
	}
	order.setStatus(next, e.now().UTC())
	e.log.Info("order status changed", "order_id", order.ID(), "from", current, "to", next)

	evt := events.New(events.OrderStatusChanged, order.ID())
	evt.UserID = order.UserID()
	evt.Status = string(next)
	evt.PreviousStatus = string(current)
	events.Notify(ctx, e.publisher, e.log, evt)
	return nil
}

// TransitionByID loads the order and applies Transition.
func (e *Engine) TransitionByID(ctx context.Context, orderID string, next Status) (*Order, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	order, err := e.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.Transition(ctx, order, next); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete removes an order in any status. It cannot be undone, so callers must
// pass confirmed.
func (e *Engine) Delete(ctx context.Context, orderID string, confirmed bool) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}
	if !confirmed {
		return domain.ErrConfirmationNeeded
	}
	if err := e.store.DeleteOrder(ctx, orderID); err != nil {
		return storeErr("delete order", err)
	}
	e.log.Info("order deleted", "order_id", orderID)
	events.Notify(ctx, e.publisher, e.log, events.New(events.OrderDeleted, orderID))
	return nil
}

func (e *Engine) load(ctx context.Context, orderID string) (*Order, error) {
	rec, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return Restore(rec), nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrIllegalTransition) {
		return err
	}
	return domain.Transport(op, err)
}
