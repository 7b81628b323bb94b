package orders

import (
	"encoding/json"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Record is the persisted form of an order as exchanged with the order
// collaborator.
type Record struct {
	ID            string               `json:"order_id"`
	UserID        string               `json:"user_id"`
	Items         []domain.OrderLine   `json:"items"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Billing       domain.Address       `json:"billing_details"`
	Shipping      domain.Address       `json:"shipping_address"`
	PaymentMethod domain.PaymentMethod `json:"payment_method,omitempty"`
	Status        Status               `json:"status"`
	CreatedAt     time.Time            `json:"created_date"`
	UpdatedAt     *time.Time           `json:"updated_date,omitempty"`
}

// Order exposes its status read-only. The engine's Transition is the only way
// to change it.
type Order struct {
	rec Record
}

func Restore(r Record) *Order {
	r.Status = normalize(r.Status)
	return &Order{rec: r}
}

func (o *Order) ID() string                   { return o.rec.ID }
func (o *Order) UserID() string               { return o.rec.UserID }
func (o *Order) Status() Status               { return o.rec.Status }
func (o *Order) TotalAmount() decimal.Decimal { return o.rec.TotalAmount }
func (o *Order) CreatedAt() time.Time         { return o.rec.CreatedAt }

func (o *Order) UpdatedAt() (time.Time, bool) {
	if o.rec.UpdatedAt == nil {
		return time.Time{}, false
	}
	return *o.rec.UpdatedAt, true
}

// Record returns a copy of the persisted fields.
func (o *Order) Record() Record {
	r := o.rec
	r.Items = append([]domain.OrderLine(nil), o.rec.Items...)
	return r
}

func (o *Order) setStatus(s Status, at time.Time) {
	o.rec.Status = s
	o.rec.UpdatedAt = &at
}

func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.rec)
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*o = *Restore(r)
	return nil
}

func restoreAll(records []Record) []*Order {
	out := make([]*Order, len(records))
	for i, r := range records {
		out[i] = Restore(r)
	}
	return out
}
