package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Category struct {
	ID          string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the profile record used to prefill billing details.
type User struct {
	ID        string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
	Street    string `json:"street"`
	Address   string `json:"address"`
	Location
	Pincode string `json:"pincode"`
	Role    Role   `json:"role"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BillingAddress projects the profile onto a checkout address.
func (u User) BillingAddress() Address {
	return Address{
		FullName: u.FullName(),
		Email:    u.Email,
		Street:   u.Address,
		Location: u.Location,
		Pincode:  u.Pincode,
	}
}

type WishlistItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
}
