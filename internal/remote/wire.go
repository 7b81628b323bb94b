package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// text accepts a JSON string, number or null. The backend sends some ids and
// the pincode as integers.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*t = text(n.String())
	}
	return nil
}

// timestamp parses the backend's naive UTC datetimes as well as RFC 3339.
type timestamp time.Time

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"}

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*ts = timestamp(time.Time{})
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = timestamp(t.UTC())
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", s)
}

func (ts timestamp) time() time.Time { return time.Time(ts) }

type productDTO struct {
	ID           text            `json:"product_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   text            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	ImageURL     string          `json:"image_url"`
}

func (p productDTO) toDomain() *domain.Product {
	category := p.CategoryName
	if category == "" {
		category = string(p.CategoryID)
	}
	return &domain.Product{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    category,
	}
}

type categoryDTO struct {
	ID          text   `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type userDTO struct {
	ID        text   `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
	Street    string `json:"street"`
	Address   string `json:"address"`
	State     string `json:"state"`
	District  string `json:"district"`
	Taluka    string `json:"taluka"`
	Village   string `json:"village"`
	Pincode   text   `json:"pincode"`
	Role      string `json:"role"`
}

func (u userDTO) toDomain() domain.User {
	role := domain.Role(u.Role)
	if role == "" {
		role = domain.RoleCustomer
	}
	return domain.User{
		ID:        string(u.ID),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Street:    u.Street,
		Address:   u.Address,
		Location: domain.Location{
			State:    u.State,
			District: u.District,
			Taluka:   u.Taluka,
			Village:  u.Village,
		},
		Pincode: string(u.Pincode),
		Role:    role,
	}
}

type cartItemDTO struct {
	CartID      text            `json:"cart_id"`
	ProductID   text            `json:"product_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedDate timestamp       `json:"created_date"`
}

func (c cartItemDTO) toDomain() domain.CartLine {
	return domain.CartLine{
		ProductID: string(c.ProductID),
		RemoteID:  string(c.CartID),
		Name:      c.Name,
		UnitPrice: c.Price,
		Quantity:  c.Quantity,
		AddedAt:   c.CreatedDate.time(),
	}
}

type addCartItemDTO struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedDate time.Time `json:"created_date"`
}

type quantityDTO struct {
	Quantity int `json:"quantity"`
}

type statusDTO struct {
	Status string `json:"status"`
}

type orderItemDTO struct {
	ProductID text            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type addressDTO struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	State    string `json:"state"`
	District string `json:"district"`
	Taluka   string `json:"taluka"`
	Village  string `json:"village"`
	Pincode  text   `json:"pincode"`
}

func newAddressDTO(a domain.Address) addressDTO {
	return addressDTO{
		FullName: a.FullName,
		Email:    a.Email,
		Address:  a.Street,
		State:    a.State,
		District: a.District,
		Taluka:   a.Taluka,
		Village:  a.Village,
		Pincode:  text(a.Pincode),
	}
}

func (a addressDTO) toDomain() domain.Address {
	return domain.Address{
		FullName: a.FullName,
		Email:    a.Email,
		Street:   a.Address,
		Location: domain.Location{State: a.State, District: a.District, Taluka: a.Taluka, Village: a.Village},
		Pincode:  string(a.Pincode),
	}
}

// looseAddress decodes either an address object or a single free-text line.
type looseAddress struct {
	addressDTO
}

func (l *looseAddress) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		l.addressDTO = addressDTO{Address: strings.TrimSpace(s)}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, &l.addressDTO)
}

type orderLineOutDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type placeOrderDTO struct {
	IdempotencyKey  string            `json:"idempotency_key"`
	Items           []orderLineOutDTO `json:"items"`
	TotalAmount     float64           `json:"total_amount"`
	BillingDetails  addressDTO        `json:"billing_details"`
	ShippingAddress addressDTO        `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentDetails  map[string]string `json:"payment_details"`
}

func newPlaceOrderDTO(req domain.OrderRequest) placeOrderDTO {
	items := make([]orderLineOutDTO, len(req.Items))
	for i, l := range req.Items {
		items[i] = orderLineOutDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.UnitPrice.InexactFloat64(),
			Quantity:  l.Quantity,
		}
	}
	details := req.PaymentDetails
	if details == nil {
		details = map[string]string{}
	}
	return placeOrderDTO{
		IdempotencyKey:  req.IdempotencyKey,
		Items:           items,
		TotalAmount:     req.TotalAmount.InexactFloat64(),
		BillingDetails:  newAddressDTO(req.Billing),
		ShippingAddress: newAddressDTO(req.Shipping),
		PaymentMethod:   string(req.PaymentMethod),
		PaymentDetails:  details,
	}
}

type orderDTO struct {
	OrderID         text            `json:"order_id"`
	UserID          text            `json:"user_id"`
	Items           []orderItemDTO  `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	BillingDetails  looseAddress    `json:"billing_details"`
	ShippingAddress looseAddress    `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	CreatedDate     timestamp       `json:"created_date"`
	UpdatedDate     *timestamp      `json:"updated_date"`
}
