package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
)

type mockStore struct {
	m       sync.RWMutex
	orders  map[string]Record
	list    []Record
	err     error
	updates int
	deletes int
}

func newMockStore(records ...Record) *mockStore {
	s := &mockStore{orders: make(map[string]Record)}
	for _, r := range records {
		s.orders[r.ID] = r
		s.list = append(s.list, r)
	}
	return s
}

func (s *mockStore) GetOrder(_ context.Context, id string) (Record, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	if s.err != nil {
		return Record{}, s.err
	}
	r, ok := s.orders[id]
	if !ok {
		return Record{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *mockStore) ListUserOrders(_ context.Context, userID string) ([]Record, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []Record
	for _, r := range s.list {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *mockStore) ListAllOrders(context.Context) ([]Record, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]Record(nil), s.list...), nil
}

func (s *mockStore) UpdateStatus(_ context.Context, id string, from, to Status) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.updates++
	if s.err != nil {
		return s.err
	}
	r, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if r.Status != from {
		return fmt.Errorf("order %s is %s: %w", id, r.Status, domain.ErrIllegalTransition)
	}
	r.Status = to
	s.orders[id] = r
	return nil
}

func (s *mockStore) DeleteOrder(_ context.Context, id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.deletes++
	if s.err != nil {
		return s.err
	}
	delete(s.orders, id)
	return nil
}

type mockPublisher struct {
	m      sync.Mutex
	events []events.Event
}

func (p *mockPublisher) Publish(_ context.Context, e events.Event) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, e)
	return nil
}

func adminCtx() context.Context {
	return auth.WithSession(context.Background(), auth.Session{UserID: "admin", Role: domain.RoleAdmin, Token: "t"})
}

func customerCtx(userID string) context.Context {
	return auth.WithSession(context.Background(), auth.Session{UserID: userID, Role: domain.RoleCustomer, Token: "t"})
}
