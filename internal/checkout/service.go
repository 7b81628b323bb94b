// Package checkout holds the checkout form of the authenticated user and turns
// it, together with the current cart, into an order request.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/keylock"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/fjod/go_cart/storefront/internal/location"
	"github.com/google/uuid"
)

type Cart interface {
	Snapshot(ctx context.Context) (*domain.Cart, error)
	Invalidate(ctx context.Context) error
}

type Profiles interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// Submitter accepts an assembled order and returns its id.
type Submitter interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (string, error)
}

type Placement struct {
	OrderID string              `json:"order_id"`
	Request domain.OrderRequest `json:"order"`
}

type Service struct {
	kv        kv.Store
	cart      Cart
	profiles  Profiles
	orders    Submitter
	locations *location.Resolver
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time
	locks     *keylock.Locker
}

func NewService(store kv.Store, cart Cart, profiles Profiles, orders Submitter,
	locations *location.Resolver, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if locations == nil {
		locations = location.Default()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		kv:        store,
		cart:      cart,
		profiles:  profiles,
		orders:    orders,
		locations: locations,
		publisher: publisher,
		log:       logger,
		now:       time.Now,
		locks:     keylock.New(),
	}
}

// Assemble validates the form against the current cart and builds the order
// request without submitting it. Checks run in a fixed order and stop at the
// first failure.
func (s *Service) Assemble(ctx context.Context) (*domain.OrderRequest, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, sess.UserID)
}

func (s *Service) assemble(ctx context.Context, userID string) (*domain.OrderRequest, error) {
	cart, err := s.cart.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	f, err := s.loadForm(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !f.Billing.Complete() {
		return nil, &domain.IncompleteAddressError{Which: domain.Billing}
	}
	if !s.locations.Consistent(f.Billing.Location) {
		return nil, fmt.Errorf("%w: %s address", domain.ErrUnknownLocation, domain.Billing)
	}
	shipping := f.Shipping
	if f.SameAsBilling {
		shipping = f.Billing
	} else if !shipping.Complete() {
		return nil, &domain.IncompleteAddressError{Which: domain.Shipping}
	} else if !s.locations.Consistent(shipping.Location) {
		return nil, fmt.Errorf("%w: %s address", domain.ErrUnknownLocation, domain.Shipping)
	}
	if !f.Payment.Method.Valid() {
		return nil, domain.ErrInvalidPayment
	}

	items := make([]domain.OrderLine, len(cart.Lines))
	for i, l := range cart.Lines {
		items[i] = domain.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
	}

	return &domain.OrderRequest{
		UserID:         userID,
		Items:          items,
		TotalAmount:    cart.Total(),
		Billing:        f.Billing,
		Shipping:       shipping,
		PaymentMethod:  f.Payment.Method,
		PaymentDetails: f.Payment.Details(),
		AssembledAt:    s.now().UTC(),
	}, nil
}

// PlaceOrder assembles and submits the order. A failed submission leaves cart
// and form untouched so the user can retry, and the retry reuses the
// idempotency key of the failed attempt.
func (s *Service) PlaceOrder(ctx context.Context) (*Placement, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.assemble(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	key, err := s.idempotencyKey(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	req.IdempotencyKey = key

	orderID, err := s.orders.SubmitOrder(ctx, *req)
	if err != nil {
		return nil, domain.Transport("submit order", err)
	}
	s.log.Info("order placed", "order_id", orderID, "user_id", sess.UserID, "total", req.TotalAmount.String())

	if err := s.cart.Invalidate(ctx); err != nil {
		s.log.Warn("cart snapshot invalidate failed", "user_id", sess.UserID, "error", err)
	}
	if _, err := s.update(ctx, sess.UserID, func(f *Form) error {
		f.Payment = domain.PaymentSelection{}
		if f.IdempotencyKey == key {
			f.IdempotencyKey = ""
		}
		return nil
	}); err != nil {
		s.log.Warn("clearing payment details failed", "user_id", sess.UserID, "error", err)
	}

	e := events.New(events.OrderPlaced, orderID)
	e.UserID = sess.UserID
	e.Status = "Pending"
	e.IdempotencyKey = req.IdempotencyKey
	total := req.TotalAmount
	e.TotalAmount = &total
	events.Notify(ctx, s.publisher, s.log, e)

	return &Placement{OrderID: orderID, Request: *req}, nil
}

// idempotencyKey returns the pending placement key of the user, minting one
// when none is stored.
func (s *Service) idempotencyKey(ctx context.Context, userID string) (string, error) {
	f, err := s.update(ctx, userID, func(f *Form) error {
		if f.IdempotencyKey == "" {
			f.IdempotencyKey = uuid.NewString()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return f.IdempotencyKey, nil
}

func (s *Service) lock(userID string) func() {
	return s.locks.Lock(userID)
}
