package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var dto productDTO
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var dtos []categoryDTO
	if err := c.do(ctx, http.MethodGet, "/categories/", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.Category, len(dtos))
	for i, d := range dtos {
		out[i] = domain.Category{ID: string(d.ID), Name: d.Name, Description: d.Description}
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var dto userDTO
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &dto); err != nil {
		return nil, err
	}
	u := dto.toDomain()
	return &u, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var dtos []userDTO
	if err := c.do(ctx, http.MethodGet, "/users/", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.User, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}
