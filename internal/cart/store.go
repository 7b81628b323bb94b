// Package cart keeps the unique-by-product cart of the authenticated user in
// sync with the cart persistence collaborator.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/freshness"
	"github.com/fjod/go_cart/storefront/internal/keylock"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Persister is the remote cart service. Every mutation must succeed here
// before the local snapshot changes.
type Persister interface {
	ListLines(ctx context.Context, userID string) ([]domain.CartLine, error)
	AddLine(ctx context.Context, userID string, line domain.CartLine) (domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID string, line domain.CartLine, quantity int) error
	RemoveLine(ctx context.Context, userID string, line domain.CartLine) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Store struct {
	kv      kv.Store
	remote  Persister
	catalog Catalog
	log     *slog.Logger
	now     func() time.Time

	sfg   singleflight.Group // collapses concurrent refreshes per user
	fresh *freshness.Tracker
	locks *keylock.Locker
}

// NewStore wires the store. remote may be nil, in which case the KV snapshot is
// the only persistence.
func NewStore(store kv.Store, remote Persister, catalog Catalog, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:      store,
		remote:  remote,
		catalog: catalog,
		log:     logger,
		now:     time.Now,
		fresh:   freshness.NewTracker(),
		locks:   keylock.New(),
	}
}

// Snapshot returns a copy of the current cart, loading it from the persistence
// collaborator when no local snapshot exists.
func (s *Store) Snapshot(ctx context.Context) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, sess.UserID)
}

func (s *Store) snapshot(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := kv.GetJSON(ctx, s.kv, kv.CartKey(userID), &cart)
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, kv.ErrMiss) {
		s.log.Warn("cart snapshot read failed, refreshing", "user_id", userID, "error", err)
	}
	return s.refresh(ctx, userID)
}

// Refresh re-reads the cart from the persistence collaborator. It is idempotent
// and a response older than one already applied is discarded.
func (s *Store) Refresh(ctx context.Context) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, sess.UserID)
}

func (s *Store) refresh(ctx context.Context, userID string) (*domain.Cart, error) {
	if s.remote == nil {
		return s.emptyCart(userID), nil
	}

	ticket := s.fresh.Issue(userID)
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		return s.remote.ListLines(ctx, userID)
	})
	if err != nil {
		return nil, domain.Transport("list cart", err)
	}

	cart := s.emptyCart(userID)
	cart.Lines = append(cart.Lines, v.([]domain.CartLine)...)

	applied := s.fresh.Apply(userID, ticket, func() {
		s.save(ctx, cart)
	})
	if !applied {
		s.log.Debug("discarding stale cart refresh", "user_id", userID, "ticket", ticket)
		var current domain.Cart
		if err := kv.GetJSON(ctx, s.kv, kv.CartKey(userID), &current); err == nil {
			return &current, nil
		}
	}
	return cart.Clone(), nil
}

// AddByID resolves the product in the catalog and adds it.
func (s *Store) AddByID(ctx context.Context, productID string, quantity int) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cart, err := s.snapshot(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if cart.Contains(productID) {
		return nil, domain.ErrDuplicateItem
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, err)
		}
		return nil, domain.Transport("get product", err)
	}
	return s.Add(ctx, *product, quantity)
}

// Add appends a line snapshotting the product's name and price. Re-adding a
// product already in the cart fails with ErrDuplicateItem.
func (s *Store) Add(ctx context.Context, product domain.Product, quantity int) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock := s.lock(sess.UserID)
	defer unlock()

	cart, err := s.snapshot(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if cart.Contains(product.ID) {
		return nil, domain.ErrDuplicateItem
	}

	line := domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		AddedAt:   s.now(),
	}
	if s.remote != nil {
		saved, err := s.remote.AddLine(ctx, sess.UserID, line)
		if errors.Is(err, domain.ErrDuplicateItem) {
			// another instance added it first; the snapshot is stale
			if errClear := s.Forget(ctx, sess.UserID); errClear != nil {
				s.log.Warn("cart snapshot invalidate failed", "user_id", sess.UserID, "error", errClear)
			}
			return nil, err
		}
		if err != nil {
			return nil, domain.Transport("add cart line", err)
		}
		line.RemoteID = saved.RemoteID
	}

	cart.Lines = append(cart.Lines, line)
	cart.UpdatedAt = s.now()
	s.commit(ctx, cart)
	return cart.Clone(), nil
}

// SetQuantity replaces the quantity of an existing line. Values below 1 are
// rejected and leave the line unchanged.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock := s.lock(sess.UserID)
	defer unlock()

	cart, err := s.snapshot(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	idx := cart.Find(productID)
	if idx < 0 {
		return nil, fmt.Errorf("product %s in cart: %w", productID, domain.ErrNotFound)
	}

	if s.remote != nil {
		if err := s.remote.UpdateQuantity(ctx, sess.UserID, cart.Lines[idx], quantity); err != nil {
			return nil, domain.Transport("update cart quantity", err)
		}
	}

	cart.Lines[idx].Quantity = quantity
	cart.UpdatedAt = s.now()
	s.commit(ctx, cart)
	return cart.Clone(), nil
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (s *Store) Remove(ctx context.Context, productID string) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(sess.UserID)
	defer unlock()

	cart, err := s.snapshot(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	idx := cart.Find(productID)
	if idx < 0 {
		return cart, nil
	}

	if s.remote != nil {
		if err := s.remote.RemoveLine(ctx, sess.UserID, cart.Lines[idx]); err != nil {
			return nil, domain.Transport("remove cart line", err)
		}
	}

	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	cart.UpdatedAt = s.now()
	s.commit(ctx, cart)
	return cart.Clone(), nil
}

// Total is the sum of unit price times quantity over the current lines.
func (s *Store) Total(ctx context.Context) (decimal.Decimal, error) {
	cart, err := s.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Total(), nil
}

// Invalidate drops the local snapshot so the next read goes to the
// persistence collaborator. It does not clear the remote cart.
func (s *Store) Invalidate(ctx context.Context) error {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return err
	}
	return s.kv.Clear(ctx, kv.CartKey(sess.UserID))
}

// Forget drops the snapshot of userID outside any request, such as when an
// order placed on another instance is observed. A refresh still in flight is
// superseded.
func (s *Store) Forget(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ticket := s.fresh.Issue(userID)
	var err error
	s.fresh.Apply(userID, ticket, func() {
		err = s.kv.Clear(ctx, kv.CartKey(userID))
	})
	return err
}

// commit stores a mutated cart and supersedes any refresh still in flight.
func (s *Store) commit(ctx context.Context, cart *domain.Cart) {
	ticket := s.fresh.Issue(cart.UserID)
	s.fresh.Apply(cart.UserID, ticket, func() {
		s.save(ctx, cart)
	})
}

func (s *Store) save(ctx context.Context, cart *domain.Cart) {
	if err := kv.SetJSON(ctx, s.kv, kv.CartKey(cart.UserID), cart); err != nil {
		s.log.Warn("cart snapshot write failed", "user_id", cart.UserID, "error", err)
		if errClear := s.kv.Clear(ctx, kv.CartKey(cart.UserID)); errClear != nil {
			s.log.Warn("cart snapshot invalidate failed", "user_id", cart.UserID, "error", errClear)
		}
	}
}

func (s *Store) emptyCart(userID string) *domain.Cart {
	now := s.now()
	return &domain.Cart{
		UserID:    userID,
		Lines:     []domain.CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Store) lock(userID string) func() {
	return s.locks.Lock(userID)
}
