package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ListLines returns the caller's cart. The backend answers 404 for an empty cart.
func (c *Client) ListLines(ctx context.Context, _ string) ([]domain.CartLine, error) {
	var dtos []cartItemDTO
	err := c.do(ctx, http.MethodGet, "/cart/", nil, &dtos)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.CartLine{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.CartLine, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (c *Client) AddLine(ctx context.Context, _ string, line domain.CartLine) (domain.CartLine, error) {
	var dto cartItemDTO
	err := c.do(ctx, http.MethodPost, "/cart/add", addCartItemDTO{
		ProductID:   line.ProductID,
		Name:        line.Name,
		Price:       line.UnitPrice.InexactFloat64(),
		Quantity:    line.Quantity,
		CreatedDate: line.AddedAt.UTC(),
	}, &dto)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return domain.CartLine{}, fmt.Errorf("%w: %s", domain.ErrDuplicateItem, se.Body)
	}
	if err != nil {
		return domain.CartLine{}, err
	}
	line.RemoteID = string(dto.CartID)
	return line, nil
}

func (c *Client) UpdateQuantity(ctx context.Context, _ string, line domain.CartLine, quantity int) error {
	if line.RemoteID == "" {
		return fmt.Errorf("cart line for product %s has no cart id", line.ProductID)
	}
	return c.do(ctx, http.MethodPut, "/cart/update/"+url.PathEscape(line.RemoteID), quantityDTO{Quantity: quantity}, nil)
}

func (c *Client) RemoveLine(ctx context.Context, _ string, line domain.CartLine) error {
	if line.RemoteID == "" {
		return fmt.Errorf("cart line for product %s has no cart id", line.ProductID)
	}
	return c.do(ctx, http.MethodDelete, "/cart/remove/"+url.PathEscape(line.RemoteID), nil, nil)
}
