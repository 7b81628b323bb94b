package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/fjod/go_cart/storefront/internal/location"
)

// Form is the in-progress checkout of one user.
type Form struct {
	Billing       domain.Address          `json:"billing_details"`
	Shipping      domain.Address          `json:"shipping_address"`
	SameAsBilling bool                    `json:"same_as_billing"`
	Payment       domain.PaymentSelection `json:"payment"`

	// IdempotencyKey is minted on the first placement attempt and kept until
	// one is confirmed, so a retried submission cannot create a second order.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (f *Form) address(kind domain.AddressKind) *domain.Address {
	if kind == domain.Shipping {
		return &f.Shipping
	}
	return &f.Billing
}

// syncShipping keeps shipping a copy of billing while the toggle is on.
func (f *Form) syncShipping() {
	if f.SameAsBilling {
		f.Shipping = f.Billing
	}
}

func (s *Service) Form(ctx context.Context) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadForm(ctx, sess.UserID)
}

// Prefill loads billing details from the user's profile. Location levels that
// do not resolve are cleared together with everything below them.
func (s *Service) Prefill(ctx context.Context) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.profiles.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, domain.Transport("get user", err)
	}
	billing := user.BillingAddress()
	if trimmed := s.locations.Trim(billing.Location); trimmed != billing.Location {
		s.log.Warn("profile location does not resolve, trimming",
			"user_id", sess.UserID, "state", billing.State, "district", billing.District,
			"taluka", billing.Taluka, "village", billing.Village)
		billing.Location = trimmed
	}
	return s.update(ctx, sess.UserID, func(f *Form) error {
		f.Billing = billing
		f.syncShipping()
		return nil
	})
}

// UpdateAddress sets free-text fields of the billing or shipping address. The
// whole update is rejected if any field is unknown. Shipping edits fail with
// ErrShippingLocked while it mirrors billing.
func (s *Service) UpdateAddress(ctx context.Context, kind domain.AddressKind, fields map[string]string) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sess.UserID, func(f *Form) error {
		if kind == domain.Shipping && f.SameAsBilling {
			return domain.ErrShippingLocked
		}
		addr := *f.address(kind)
		for field, value := range fields {
			if err := addr.Set(field, value); err != nil {
				return err
			}
		}
		*f.address(kind) = addr
		f.syncShipping()
		return nil
	})
}

// SetSameAsBilling toggles shipping mirroring. Turning it off leaves shipping
// as an empty form.
func (s *Service) SetSameAsBilling(ctx context.Context, on bool) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sess.UserID, func(f *Form) error {
		f.SameAsBilling = on
		if on {
			f.Shipping = f.Billing
		} else {
			f.Shipping = domain.Address{}
		}
		return nil
	})
}

// SelectLocation sets one level of an address location and clears every level
// below it. An empty value clears the level.
func (s *Service) SelectLocation(ctx context.Context, kind domain.AddressKind, level location.Level, value string) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sess.UserID, func(f *Form) error {
		if kind == domain.Shipping && f.SameAsBilling {
			return domain.ErrShippingLocked
		}
		addr := f.address(kind)
		if value != "" && !s.locations.Valid(level, value, addr.Location) {
			return fmt.Errorf("%w: %s %q", domain.ErrUnknownLocation, level, value)
		}
		addr.Location = s.locations.OnSelect(level, value, addr.Location)
		f.syncShipping()
		return nil
	})
}

// SelectPayment switches the payment method and discards every field entered
// for the previous one.
func (s *Service) SelectPayment(ctx context.Context, method domain.PaymentMethod) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	sel, err := domain.SelectPayment(method)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sess.UserID, func(f *Form) error {
		f.Payment = sel
		return nil
	})
}

func (s *Service) SetPaymentFields(ctx context.Context, fields map[string]string) (*Form, error) {
	sess, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sess.UserID, func(f *Form) error {
		sel := f.Payment
		if sel.Card != nil {
			card := *sel.Card
			sel.Card = &card
		}
		if sel.Wallet != nil {
			wallet := *sel.Wallet
			sel.Wallet = &wallet
		}
		for field, value := range fields {
			if err := sel.SetField(field, value); err != nil {
				return err
			}
		}
		f.Payment = sel
		return nil
	})
}

func (s *Service) update(ctx context.Context, userID string, fn func(f *Form) error) (*Form, error) {
	unlock := s.lock(userID)
	defer unlock()

	f, err := s.loadForm(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	if err := kv.SetJSON(ctx, s.kv, kv.CheckoutKey(userID), f); err != nil {
		return nil, fmt.Errorf("save checkout form: %w", err)
	}
	return f, nil
}

func (s *Service) loadForm(ctx context.Context, userID string) (*Form, error) {
	var f Form
	err := kv.GetJSON(ctx, s.kv, kv.CheckoutKey(userID), &f)
	if errors.Is(err, kv.ErrMiss) {
		return &Form{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout form: %w", err)
	}
	return &f, nil
}
