package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCtx() context.Context {
	return auth.WithSession(context.Background(), auth.Session{UserID: "7", Role: domain.RoleCustomer, Token: "tok-7"})
}

func newTestClient(t *testing.T, r http.Handler) *Client {
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, MaxFailures: 2, OpenTimeout: time.Minute}, nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGetProduct(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer tok-7", req.Header.Get("Authorization"))
		if chi.URLParam(req, "id") != "p1" {
			writeJSON(w, http.StatusNotFound, `{"detail":"Product not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"product_id":"p1","name":"Shirt","price":19.99,"stock":4,
			"category_id":"c1","category_name":"Apparel","image_url":"/img/p1.png"}`)
	})
	c := newTestClient(t, r)

	p, err := c.GetProduct(sessionCtx(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Shirt", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "Apparel", p.Category)

	_, err = c.GetProduct(sessionCtx(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCategories(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/categories/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"category_id":"1","name":"Apparel"},{"category_id":"2","name":"Shoes"}]`)
	})

	cats, err := newTestClient(t, r).ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Shoes", cats[1].Name)
}

func TestGetUser_NumericFields(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"user_id":7,"email":"a@example.com","first_name":"Asha","last_name":null,
			"address":"12 Park Road","state":"Maharashtra","pincode":411001,"role":"customer"}`)
	})

	u, err := newTestClient(t, r).GetUser(sessionCtx(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", u.ID)
	assert.Equal(t, "411001", u.Pincode)
	assert.Equal(t, "Asha", u.FullName())
	assert.Equal(t, "Maharashtra", u.State)
}

func TestListLines_EmptyCartIs404(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/cart/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Cart is empty"}`)
	})

	lines, err := newTestClient(t, r).ListLines(sessionCtx(), "7")
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestCartRoundTrip(t *testing.T) {
	var updated, removed atomic.Value
	r := chi.NewRouter()
	r.Get("/cart/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"cart_id":"3","product_id":"p1","user_id":"7","name":"Shirt","price":20,
			"quantity":2,"created_date":"2024-03-01T10:00:00.123456"}]`)
	})
	r.Post("/cart/add", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "p2", body["product_id"])
		assert.Equal(t, 5.5, body["price"])
		writeJSON(w, http.StatusOK, `{"cart_id":"4","product_id":"p2","user_id":"7","name":"Cap","price":5.5,
			"quantity":1,"created_date":"2024-03-01T10:00:00"}`)
	})
	r.Put("/cart/update/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body quantityDTO
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		updated.Store(chi.URLParam(req, "id") + ":" + strconv.Itoa(body.Quantity))
		writeJSON(w, http.StatusOK, `{}`)
	})
	r.Delete("/cart/remove/{id}", func(w http.ResponseWriter, req *http.Request) {
		removed.Store(chi.URLParam(req, "id"))
		writeJSON(w, http.StatusOK, `{"message":"Item removed from cart successfully"}`)
	})
	c := newTestClient(t, r)
	ctx := sessionCtx()

	lines, err := c.ListLines(ctx, "7")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "3", lines[0].RemoteID)
	assert.Equal(t, 2024, lines[0].AddedAt.Year())

	added, err := c.AddLine(ctx, "7", domain.CartLine{ProductID: "p2", Name: "Cap", UnitPrice: decimal.RequireFromString("5.5"), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "4", added.RemoteID)

	require.NoError(t, c.UpdateQuantity(ctx, "7", lines[0], 5))
	assert.Equal(t, "3:5", updated.Load())

	require.NoError(t, c.RemoveLine(ctx, "7", added))
	assert.Equal(t, "4", removed.Load())

	assert.Error(t, c.RemoveLine(ctx, "7", domain.CartLine{ProductID: "p9"}))
}

func TestAddLine_ConflictIsDuplicate(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/cart/add", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, `{"detail":"Product already in cart"}`)
	})

	_, err := newTestClient(t, r).AddLine(sessionCtx(), "7", domain.CartLine{ProductID: "p1", Name: "Hat", UnitPrice: decimal.RequireFromString("10"), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicateItem)
	var se *StatusError
	assert.False(t, errors.As(err, &se), "conflict is not reported as a transport status")
}

func TestSubmitOrder_Payload(t *testing.T) {
	var got map[string]any
	r := chi.NewRouter()
	r.Post("/orders/", func(w http.ResponseWriter, req *http.Request) {
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"order_id":"12","user_id":"7","items":[],"total_amount":20,
			"shipping_address":"12 Park Road","status":"Pending","created_date":"2024-03-01T10:00:00"}`)
	})

	billing := domain.Address{FullName: "Asha Rao", Street: "12 Park Road", Pincode: "411001"}
	id, err := newTestClient(t, r).SubmitOrder(sessionCtx(), domain.OrderRequest{
		IdempotencyKey: "key-1",
		Items:          []domain.OrderLine{{ProductID: "p1", Name: "Shirt", UnitPrice: decimal.NewFromInt(20), Quantity: 1}},
		TotalAmount:    decimal.NewFromInt(20),
		Billing:        billing,
		Shipping:       billing,
		PaymentMethod:  domain.PaymentCOD,
		PaymentDetails: map[string]string{},
	})
	require.NoError(t, err)
	assert.Equal(t, "12", id)

	assert.Equal(t, float64(20), got["total_amount"])
	assert.Equal(t, "cod", got["payment_method"])
	assert.Equal(t, map[string]any{}, got["payment_details"])
	assert.Equal(t, "key-1", got["idempotency_key"])
	shipping := got["shipping_address"].(map[string]any)
	assert.Equal(t, "12 Park Road", shipping["address"])
	assert.Equal(t, "411001", shipping["pincode"])
}

func TestListAllOrders_TolerantDecoding(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/admin/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"order_id":"1","user_id":7,"items":[{"product_id":"p1","name":"Shirt","price":20,"quantity":1}],
			 "total_amount":20,"shipping_address":"12 Park Road","status":"Shipped",
			 "created_date":"2024-03-01T10:00:00","updated_date":null},
			{"order_id":"2","user_id":"8","items":[],"total_amount":0,
			 "shipping_address":{"full_name":"Ravi","address":"3 Lake View","pincode":560001},
			 "status":"","created_date":"2024-03-02T10:00:00Z","updated_date":"2024-03-03T10:00:00"}]`)
	})

	recs, err := newTestClient(t, r).ListAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "7", recs[0].UserID)
	assert.Equal(t, orders.Shipped, recs[0].Status)
	assert.Equal(t, "12 Park Road", recs[0].Shipping.Street)
	assert.Nil(t, recs[0].UpdatedAt)

	assert.Equal(t, "Ravi", recs[1].Shipping.FullName)
	assert.Equal(t, "560001", recs[1].Shipping.Pincode)
	require.NotNil(t, recs[1].UpdatedAt)
	assert.Equal(t, orders.Pending, orders.Restore(recs[1]).Status())
}

func TestOrderMutations(t *testing.T) {
	var status atomic.Value
	r := chi.NewRouter()
	r.Get("/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, `{"order_id":"`+chi.URLParam(req, "id")+`","status":"Pending","total_amount":20}`)
	})
	r.Put("/orders/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		var body statusDTO
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		status.Store(chi.URLParam(req, "id") + "=" + body.Status)
		writeJSON(w, http.StatusOK, `{}`)
	})
	r.Delete("/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") == "missing" {
			writeJSON(w, http.StatusNotFound, `{"detail":"Order not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"message":"Order cancelled successfully"}`)
	})
	c := newTestClient(t, r)

	require.NoError(t, c.UpdateStatus(context.Background(), "1", orders.Pending, orders.Completed))
	assert.Equal(t, "1=Completed", status.Load())

	err := c.UpdateStatus(context.Background(), "2", orders.Shipped, orders.Completed)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Equal(t, "1=Completed", status.Load(), "a moved order is not written")
	require.NoError(t, c.DeleteOrder(context.Background(), "1"))
	assert.ErrorIs(t, c.DeleteOrder(context.Background(), "missing"), domain.ErrNotFound)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/categories/", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	})
	c := newTestClient(t, r)

	for i := 0; i < 2; i++ {
		_, err := c.ListCategories(context.Background())
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.Code)
	}

	_, err := c.ListCategories(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, `{"detail":"Product not found"}`)
	})
	c := newTestClient(t, r)

	for i := 0; i < 5; i++ {
		_, err := c.GetProduct(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestNoSessionSendsNoAuthorization(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/categories/", func(w http.ResponseWriter, req *http.Request) {
		assert.Empty(t, req.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[]`)
	})

	_, err := newTestClient(t, r).ListCategories(context.Background())
	require.NoError(t, err)
}
