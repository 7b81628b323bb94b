package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateItem      = errors.New("product is already in the cart")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrIncompleteAddress  = errors.New("address is incomplete")
	ErrIllegalTransition  = errors.New("illegal transition of order status")
	ErrAlreadyInCart      = errors.New("product is in the cart and cannot be wishlisted")
	ErrAlreadyWishlisted  = errors.New("product is already in the wishlist")
	ErrUnauthenticated    = errors.New("missing user authentication")
	ErrForbidden          = errors.New("operation not permitted for this role")
	ErrTransport          = errors.New("collaborator call failed")
	ErrInvalidPayment     = errors.New("unsupported payment method")
	ErrShippingLocked     = errors.New("shipping address is locked to billing")
	ErrUnknownLocation    = errors.New("location is not a child of the selected parent")
	ErrUnknownField       = errors.New("unknown form field")
	ErrNotFound           = errors.New("not found")
	ErrConfirmationNeeded = errors.New("destructive operation requires explicit confirmation")
)

// AddressKind names which address of a checkout failed validation.
type AddressKind string

const (
	Billing  AddressKind = "billing"
	Shipping AddressKind = "shipping"
)

type IncompleteAddressError struct {
	Which AddressKind
}

func (e *IncompleteAddressError) Error() string {
	return fmt.Sprintf("%s address is incomplete: full name and address are required", e.Which)
}

func (e *IncompleteAddressError) Is(target error) bool {
	return target == ErrIncompleteAddress
}

// TransportError wraps any failure returned by an external collaborator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Transport wraps err as a TransportError unless it already is one or is nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
