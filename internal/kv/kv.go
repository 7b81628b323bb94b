// Package kv is the injected key-value capability used for per-user session
// state (cart snapshot, wishlist, checkout form).
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMiss = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}

// GetJSON decodes the value stored at key into v. It returns ErrMiss when absent.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

func CartKey(userID string) string     { return "cart:" + userID }
func WishlistKey(userID string) string { return "wishlist:" + userID }
func CheckoutKey(userID string) string { return "checkout:" + userID }
