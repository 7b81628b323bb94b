package auth

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	UserID string
	Role   domain.Role
	Token  string
}

func (s Session) IsAdmin() bool { return s.Role == domain.RoleAdmin }

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || s.UserID == "" || s.Token == "" {
		return Session{}, false
	}
	return s, true
}

// Require returns the session or ErrUnauthenticated. Callers check it before
// any collaborator is invoked.
func Require(ctx context.Context) (Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return Session{}, domain.ErrUnauthenticated
	}
	return s, nil
}

func RequireAdmin(ctx context.Context) (Session, error) {
	s, err := Require(ctx)
	if err != nil {
		return Session{}, err
	}
	if !s.IsAdmin() {
		return Session{}, domain.ErrForbidden
	}
	return s, nil
}

// RequireCustomer admits only customer sessions. Carts, wishlists and checkout
// belong to shoppers, so admins get ErrForbidden.
func RequireCustomer(ctx context.Context) (Session, error) {
	s, err := Require(ctx)
	if err != nil {
		return Session{}, err
	}
	if s.Role != domain.RoleCustomer {
		return Session{}, domain.ErrForbidden
	}
	return s, nil
}
