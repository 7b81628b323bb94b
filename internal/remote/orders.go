package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
)

func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	var dto orderDTO
	if err := c.do(ctx, http.MethodPost, "/orders/", newPlaceOrderDTO(req), &dto); err != nil {
		return "", err
	}
	return string(dto.OrderID), nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (orders.Record, error) {
	var dto orderDTO
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &dto); err != nil {
		return orders.Record{}, err
	}
	return toRecord(dto), nil
}

func (c *Client) ListUserOrders(ctx context.Context, userID string) ([]orders.Record, error) {
	return c.listOrders(ctx, "/orders/user/"+url.PathEscape(userID))
}

func (c *Client) ListAllOrders(ctx context.Context) ([]orders.Record, error) {
	return c.listOrders(ctx, "/admin/orders")
}

// UpdateStatus re-reads the order and writes only while its status is still
// from. The remote API has no conditional update, so the check narrows the
// window between read and write without closing it.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) error {
	current, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Status != from {
		return fmt.Errorf("order %s is %s, not %s: %w", orderID, current.Status, from, domain.ErrIllegalTransition)
	}
	return c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/status", statusDTO{Status: string(to)}, nil)
}

func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, nil)
}

func (c *Client) listOrders(ctx context.Context, path string) ([]orders.Record, error) {
	var dtos []orderDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]orders.Record, len(dtos))
	for i, d := range dtos {
		out[i] = toRecord(d)
	}
	return out, nil
}

func toRecord(d orderDTO) orders.Record {
	items := make([]domain.OrderLine, len(d.Items))
	for i, it := range d.Items {
		items[i] = domain.OrderLine{
			ProductID: string(it.ProductID),
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
		}
	}
	rec := orders.Record{
		ID:            string(d.OrderID),
		UserID:        string(d.UserID),
		Items:         items,
		TotalAmount:   d.TotalAmount,
		Billing:       d.BillingDetails.toDomain(),
		Shipping:      d.ShippingAddress.toDomain(),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		Status:        orders.Status(d.Status),
		CreatedAt:     d.CreatedDate.time(),
	}
	if d.UpdatedDate != nil && !d.UpdatedDate.time().IsZero() {
		t := d.UpdatedDate.time()
		rec.UpdatedAt = &t
	}
	return rec
}
