package http

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	users    map[string]domain.User
	err      error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[string]domain.Product{
			"p1": {ID: "p1", Name: "Cotton Shirt", Price: decimal.RequireFromString("499.00"), Category: "Clothing"},
			"p2": {ID: "p2", Name: "Steel Tiffin", Price: decimal.RequireFromString("349.99"), Category: "Home"},
		},
		users: map[string]domain.User{
			"u1":    {ID: "u1", Email: "asha@example.com", FirstName: "Asha", LastName: "Rao", Address: "12 Park Road", Role: domain.RoleCustomer},
			"admin": {ID: "admin", Email: "admin@example.com", FirstName: "Store", LastName: "Admin", Role: domain.RoleAdmin},
		},
	}
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeCatalog) ListCategories(_ context.Context) ([]domain.Category, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Category{{ID: "1", Name: "Clothing"}, {ID: "2", Name: "Home"}}, nil
}

func (f *fakeCatalog) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return &u, nil
}

func (f *fakeCatalog) ListUsers(_ context.Context) ([]domain.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

// fakeOrders accepts submissions and serves them back as order records.
type fakeOrders struct {
	mu      sync.RWMutex
	records map[string]orders.Record
	nextID  int
	err     error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{records: make(map[string]orders.Record)}
}

func (f *fakeOrders) SubmitOrder(_ context.Context, req domain.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.nextID++
	id := fmt.Sprintf("order-%d", f.nextID)
	f.records[id] = orders.Record{
		ID:            id,
		UserID:        req.UserID,
		Items:         req.Items,
		TotalAmount:   req.TotalAmount,
		Billing:       req.Billing,
		Shipping:      req.Shipping,
		PaymentMethod: req.PaymentMethod,
		Status:        orders.Pending,
		CreatedAt:     time.Now(),
	}
	return id, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (orders.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.records[orderID]
	if !ok {
		return orders.Record{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeOrders) ListUserOrders(_ context.Context, userID string) ([]orders.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := []orders.Record{}
	for _, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrders) ListAllOrders(_ context.Context) ([]orders.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]orders.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, orderID string, from, to orders.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if rec.Status != from {
		return fmt.Errorf("order %s is %s: %w", orderID, rec.Status, domain.ErrIllegalTransition)
	}
	rec.Status = to
	f.records[orderID] = rec
	return nil
}

func (f *fakeOrders) DeleteOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[orderID]; !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	delete(f.records, orderID)
	return nil
}
