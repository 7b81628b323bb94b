package orders

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/freshness"
	"golang.org/x/sync/errgroup"
)

type Users interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Entry is one row of the admin board.
type Entry struct {
	Order       *Order       `json:"order"`
	Customer    *domain.User `json:"customer,omitempty"`
	Transitions []Status     `json:"available_transitions"`
}

// Board joins every order with its customer for administrators.
type Board struct {
	store Store
	users Users
	log   *slog.Logger
	fresh *freshness.Tracker

	mu   sync.Mutex
	last map[string][]Entry
}

func NewBoard(store Store, users Users, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		store: store,
		users: users,
		log:   logger,
		fresh: freshness.NewTracker(),
		last:  make(map[string][]Entry),
	}
}

// Load fetches orders and users in parallel and joins them by user id. If a
// newer load for the same admin finished first, its result is returned instead.
func (b *Board) Load(ctx context.Context) ([]Entry, error) {
	sess, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	ticket := b.fresh.Issue(sess.UserID)

	var (
		records []Record
		users   []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = b.store.ListAllOrders(gctx)
		if err != nil {
			return domain.Transport("list all orders", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = b.users.ListUsers(gctx)
		if err != nil {
			return domain.Transport("list users", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := merge(records, users)

	var result []Entry
	applied := b.fresh.Apply(sess.UserID, ticket, func() {
		b.mu.Lock()
		b.last[sess.UserID] = entries
		b.mu.Unlock()
	})
	if !applied {
		b.log.Debug("discarding stale order board", "admin_id", sess.UserID, "ticket", ticket)
	}
	b.mu.Lock()
	result = b.last[sess.UserID]
	b.mu.Unlock()
	return result, nil
}

func merge(records []Record, users []domain.User) []Entry {
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	entries := make([]Entry, len(records))
	for i, r := range records {
		order := Restore(r)
		entries[i] = Entry{
			Order:       order,
			Customer:    byID[r.UserID],
			Transitions: AvailableTransitions(order.Status()),
		}
	}
	return entries
}
