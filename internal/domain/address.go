package domain

import (
	"fmt"
	"strings"
)

// Location is the four-level state/district/taluka/village fragment of an address.
type Location struct {
	State    string `json:"state"`
	District string `json:"district"`
	Taluka   string `json:"taluka"`
	Village  string `json:"village"`
}

// Address is used for billing and shipping. Pincode is always text.
type Address struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Street   string `json:"address"`
	Location
	Pincode string `json:"pincode"`
}

// Complete reports whether the fields required to place an order are present.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.FullName) != "" && strings.TrimSpace(a.Street) != ""
}

// Set assigns one free-text field by its wire name. Location levels are
// changed through the location resolver and are rejected here.
func (a *Address) Set(field, value string) error {
	switch field {
	case "full_name":
		a.FullName = value
	case "email":
		a.Email = value
	case "address":
		a.Street = value
	case "pincode":
		a.Pincode = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}
