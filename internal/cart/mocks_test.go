package cart

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type mockPersister struct {
	m      sync.RWMutex
	lines  []domain.CartLine
	nextID int
	err    error
	calls  int

	// when set, ListLines reads the lines, reports on listed and then waits
	// for release before answering
	listed  chan struct{}
	release chan struct{}
}

func (p *mockPersister) ListLines(context.Context, string) ([]domain.CartLine, error) {
	p.m.Lock()
	p.calls++
	if p.err != nil {
		p.m.Unlock()
		return nil, p.err
	}
	out := make([]domain.CartLine, len(p.lines))
	copy(out, p.lines)
	listed, release := p.listed, p.release
	p.m.Unlock()

	if listed != nil {
		listed <- struct{}{}
		<-release
	}
	return out, nil
}

func (p *mockPersister) hold() (listed, release chan struct{}) {
	p.m.Lock()
	defer p.m.Unlock()
	p.listed = make(chan struct{}, 1)
	p.release = make(chan struct{})
	return p.listed, p.release
}

func (p *mockPersister) seed(line domain.CartLine) {
	p.m.Lock()
	defer p.m.Unlock()
	p.nextID++
	line.RemoteID = strconv.Itoa(p.nextID)
	p.lines = append(p.lines, line)
}

func (p *mockPersister) AddLine(_ context.Context, _ string, line domain.CartLine) (domain.CartLine, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.calls++
	if p.err != nil {
		return domain.CartLine{}, p.err
	}
	for _, l := range p.lines {
		if l.ProductID == line.ProductID {
			return domain.CartLine{}, fmt.Errorf("cart line: %w", domain.ErrDuplicateItem)
		}
	}
	p.nextID++
	line.RemoteID = strconv.Itoa(p.nextID)
	p.lines = append(p.lines, line)
	return line, nil
}

func (p *mockPersister) UpdateQuantity(_ context.Context, _ string, line domain.CartLine, quantity int) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	for i := range p.lines {
		if p.lines[i].RemoteID == line.RemoteID {
			p.lines[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (p *mockPersister) RemoveLine(_ context.Context, _ string, line domain.CartLine) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	for i := range p.lines {
		if p.lines[i].RemoteID == line.RemoteID {
			p.lines = append(p.lines[:i], p.lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (p *mockPersister) callCount() int {
	p.m.RLock()
	defer p.m.RUnlock()
	return p.calls
}

func (p *mockPersister) setErr(err error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.err = err
}

type mockCatalog struct {
	products map[string]domain.Product
	err      error
}

func (c *mockCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func product(id, name, price string) domain.Product {
	return domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func adminCtx() context.Context {
	return auth.WithSession(context.Background(), auth.Session{
		UserID: "admin",
		Role:   domain.RoleAdmin,
		Token:  "token-admin",
	})
}

func customerCtx(userID string) context.Context {
	return auth.WithSession(context.Background(), auth.Session{
		UserID: userID,
		Role:   domain.RoleCustomer,
		Token:  "token-" + userID,
	})
}
