// Package wishlist keeps the saved-for-later list of the authenticated user and
// guards it against products that are already in the cart.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/keylock"
	"github.com/fjod/go_cart/storefront/internal/kv"
)

// Cart is the subset of the cart store the guard depends on.
type Cart interface {
	Snapshot(ctx context.Context) (*domain.Cart, error)
	Add(ctx context.Context, product domain.Product, quantity int) (*domain.Cart, error)
}

type Guard struct {
	kv    kv.Store
	cart  Cart
	log   *slog.Logger
	locks *keylock.Locker
}

func NewGuard(store kv.Store, cart Cart, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{kv: store, cart: cart, log: logger, locks: keylock.New()}
}

func (g *Guard) List(ctx context.Context) ([]domain.WishlistItem, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return g.load(ctx, sess.UserID)
}

// Add appends item. Products already in the cart are rejected before the
// wishlist itself is checked.
func (g *Guard) Add(ctx context.Context, item domain.WishlistItem) ([]domain.WishlistItem, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	unlock := g.lock(sess.UserID)
	defer unlock()

	cart, err := g.cart.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if cart.Contains(item.ProductID) {
		return nil, domain.ErrAlreadyInCart
	}

	items, err := g.load(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if indexOf(items, item.ProductID) >= 0 {
		return nil, domain.ErrAlreadyWishlisted
	}

	items = append(items, item)
	if err := kv.SetJSON(ctx, g.kv, kv.WishlistKey(sess.UserID), items); err != nil {
		return nil, fmt.Errorf("save wishlist: %w", err)
	}
	return items, nil
}

// Remove drops productID from the wishlist. Absent products are a no-op.
func (g *Guard) Remove(ctx context.Context, productID string) ([]domain.WishlistItem, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	unlock := g.lock(sess.UserID)
	defer unlock()

	items, err := g.load(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, productID)
	if idx < 0 {
		return items, nil
	}

	items = append(items[:idx], items[idx+1:]...)
	if err := kv.SetJSON(ctx, g.kv, kv.WishlistKey(sess.UserID), items); err != nil {
		return nil, fmt.Errorf("save wishlist: %w", err)
	}
	return items, nil
}

// MoveToCart adds the wishlisted product to the cart with quantity 1. The
// wishlist entry is kept.
func (g *Guard) MoveToCart(ctx context.Context, productID string) (*domain.Cart, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	items, err := g.load(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, productID)
	if idx < 0 {
		return nil, fmt.Errorf("product %s in wishlist: %w", productID, domain.ErrNotFound)
	}

	item := items[idx]
	cart, err := g.cart.Add(ctx, domain.Product{
		ID:       item.ProductID,
		Name:     item.Name,
		Price:    item.Price,
		ImageURL: item.ImageURL,
	}, 1)
	if err != nil {
		return nil, err
	}
	g.log.Debug("moved wishlist item to cart", "user_id", sess.UserID, "product_id", productID)
	return cart, nil
}

func (g *Guard) load(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	err := kv.GetJSON(ctx, g.kv, kv.WishlistKey(userID), &items)
	if errors.Is(err, kv.ErrMiss) {
		return []domain.WishlistItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}
	return items, nil
}

func (g *Guard) lock(userID string) func() {
	return g.locks.Lock(userID)
}

func indexOf(items []domain.WishlistItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
