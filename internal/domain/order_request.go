package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderRequest is the immutable output of checkout assembly.
type OrderRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	UserID         string            `json:"user_id"`
	Items          []OrderLine       `json:"items"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Billing        Address           `json:"billing_details"`
	Shipping       Address           `json:"shipping_address"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	PaymentDetails map[string]string `json:"payment_details"`
	AssembledAt    time.Time         `json:"assembled_at"`
}
