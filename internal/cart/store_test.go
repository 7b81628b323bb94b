package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *mockPersister, *kv.MemoryStore) {
	remote := &mockPersister{}
	mem := kv.NewMemoryStore()
	catalog := &mockCatalog{products: map[string]domain.Product{
		"A": product("A", "Shirt", "10"),
		"B": product("B", "Socks", "5"),
	}}
	return NewStore(mem, remote, catalog, nil), remote, mem
}

func TestAdd_Success(t *testing.T) {
	sut, remote, mem := newTestStore()
	ctx := customerCtx("u1")

	cart, err := sut.Add(ctx, product("A", "Shirt", "10"), 2)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "A", cart.Lines[0].ProductID)
	assert.Equal(t, "Shirt", cart.Lines[0].Name)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, "1", cart.Lines[0].RemoteID)
	assert.Len(t, remote.lines, 1)

	// snapshot persisted to the injected store
	var stored domain.Cart
	require.NoError(t, kv.GetJSON(context.Background(), mem, kv.CartKey("u1"), &stored))
	assert.Len(t, stored.Lines, 1)
}

func TestAdd_DuplicateRejected(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := customerCtx("u1")

	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)
	calls := remote.callCount()

	_, err = sut.Add(ctx, product("A", "Shirt", "10"), 3)
	assert.ErrorIs(t, err, domain.ErrDuplicateItem)
	assert.Equal(t, calls, remote.callCount(), "duplicate must be rejected before any remote call")

	cart, err := sut.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity, "re-adding does not bump quantity")
}

func TestAdd_SnapshotPricing(t *testing.T) {
	sut, _, _ := newTestStore()
	ctx := customerCtx("u1")

	_, err := sut.AddByID(ctx, "A", 1)
	require.NoError(t, err)

	// a later price change in the catalog does not reprice the line
	sut.catalog.(*mockCatalog).products["A"] = product("A", "Shirt v2", "99")
	cart, err := sut.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", cart.Lines[0].UnitPrice.String())
	assert.Equal(t, "Shirt", cart.Lines[0].Name)
}

func TestAddByID_UnknownProduct(t *testing.T) {
	sut, _, _ := newTestStore()

	_, err := sut.AddByID(customerCtx("u1"), "Z", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddByID_CatalogFailureIsTransport(t *testing.T) {
	sut, _, _ := newTestStore()
	sut.catalog.(*mockCatalog).err = errors.New("connection refused")

	_, err := sut.AddByID(customerCtx("u1"), "A", 1)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestAdd_InvalidQuantity(t *testing.T) {
	sut, remote, _ := newTestStore()

	_, err := sut.Add(customerCtx("u1"), product("A", "Shirt", "10"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Zero(t, remote.callCount())
}

func TestAdd_RemoteFailureLeavesCartUntouched(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)

	remote.setErr(errors.New("database error"))
	_, err = sut.Add(ctx, product("B", "Socks", "5"), 1)
	require.ErrorIs(t, err, domain.ErrTransport)
	require.ErrorContains(t, err, "database error")

	remote.setErr(nil)
	cart, err := sut.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestUnauthenticated(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := context.Background()

	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = sut.SetQuantity(ctx, "A", 2)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = sut.Remove(ctx, "A")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = sut.Snapshot(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, sut.Invalidate(ctx), domain.ErrUnauthenticated)
	assert.Zero(t, remote.callCount())
}

func TestAdminHasNoCart(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := adminCtx()

	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = sut.AddByID(ctx, "A", 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = sut.Snapshot(ctx)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, remote.callCount())
}

func TestAdd_DuplicateFromStaleSnapshot(t *testing.T) {
	sut, remote, mem := newTestStore()
	ctx := customerCtx("u1")
	cart, err := sut.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, cart.Lines)

	// another instance adds the product behind this snapshot
	remote.seed(domain.CartLine{ProductID: "A", Name: "Shirt", UnitPrice: decimal.NewFromInt(10), Quantity: 1})

	_, err = sut.Add(ctx, product("A", "Shirt", "10"), 1)
	assert.ErrorIs(t, err, domain.ErrDuplicateItem)
	assert.NotErrorIs(t, err, domain.ErrTransport)

	_, err = mem.Get(context.Background(), kv.CartKey("u1"))
	assert.ErrorIs(t, err, kv.ErrMiss, "the stale snapshot is dropped")
	cart, err = sut.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "A", cart.Lines[0].ProductID)
}

func TestSetQuantity_Success(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)

	cart, err := sut.SetQuantity(ctx, "A", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Lines[0].Quantity)
	assert.Equal(t, "40", cart.Total().String())
	assert.Equal(t, 4, remote.lines[0].Quantity)
}

func TestSetQuantity_ZeroRejected(t *testing.T) {
	sut, _, _ := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 3)
	require.NoError(t, err)

	_, err = sut.SetQuantity(ctx, "A", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	cart, err := sut.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
}

func TestSetQuantity_MissingLine(t *testing.T) {
	sut, _, _ := newTestStore()

	_, err := sut.SetQuantity(customerCtx("u1"), "A", 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemove(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)
	_, err = sut.Add(ctx, product("B", "Socks", "5"), 1)
	require.NoError(t, err)

	cart, err := sut.Remove(ctx, "A")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "B", cart.Lines[0].ProductID)
	assert.Len(t, remote.lines, 1)

	// absent product is a no-op without a remote call
	calls := remote.callCount()
	cart, err = sut.Remove(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
	assert.Equal(t, calls, remote.callCount())
}

func TestTotal(t *testing.T) {
	sut, _, _ := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 2)
	require.NoError(t, err)
	_, err = sut.Add(ctx, product("B", "Socks", "5"), 3)
	require.NoError(t, err)

	total, err := sut.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, "35", total.String())
}

func TestSnapshot_LoadsFromRemoteOnMiss(t *testing.T) {
	sut, remote, _ := newTestStore()
	remote.lines = []domain.CartLine{
		{ProductID: "A", RemoteID: "9", Name: "Shirt", UnitPrice: product("A", "", "10").Price, Quantity: 1},
	}

	cart, err := sut.Snapshot(customerCtx("u1"))
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "9", cart.Lines[0].RemoteID)

	// second read is served from the local snapshot
	calls := remote.callCount()
	_, err = sut.Snapshot(customerCtx("u1"))
	require.NoError(t, err)
	assert.Equal(t, calls, remote.callCount())
}

func TestRefresh_TransportFailure(t *testing.T) {
	sut, remote, _ := newTestStore()
	remote.setErr(errors.New("timeout"))

	_, err := sut.Refresh(customerCtx("u1"))
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestRefresh_IsIdempotent(t *testing.T) {
	sut, remote, _ := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 2)
	require.NoError(t, err)

	first, err := sut.Refresh(ctx)
	require.NoError(t, err)
	second, err := sut.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Lines, second.Lines)
	assert.Len(t, remote.lines, 1)
}

func TestRefresh_OlderThanCommitIsDiscarded(t *testing.T) {
	sut, remote, mem := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)

	listed, release := remote.hold()
	refreshed := make(chan *domain.Cart, 1)
	go func() {
		cart, err := sut.Refresh(ctx)
		assert.NoError(t, err)
		refreshed <- cart
	}()
	<-listed

	// issued after the refresh, applied before it answers
	_, err = sut.Add(ctx, product("B", "Socks", "5"), 1)
	require.NoError(t, err)
	close(release)

	cart := <-refreshed
	require.NotNil(t, cart)
	require.Len(t, cart.Lines, 2, "the stale listing must not overwrite the newer cart")
	assert.Equal(t, "B", cart.Lines[1].ProductID)

	var stored domain.Cart
	require.NoError(t, kv.GetJSON(context.Background(), mem, kv.CartKey("u1"), &stored))
	assert.Len(t, stored.Lines, 2)
}

func TestStoresAreScopedPerUser(t *testing.T) {
	sut, _, _ := newTestStore()
	sut.remote = nil

	_, err := sut.Add(customerCtx("u1"), product("A", "Shirt", "10"), 1)
	require.NoError(t, err)

	cart, err := sut.Snapshot(customerCtx("u2"))
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestInvalidate(t *testing.T) {
	sut, remote, mem := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)

	require.NoError(t, sut.Invalidate(ctx))
	_, err = mem.Get(context.Background(), kv.CartKey("u1"))
	assert.ErrorIs(t, err, kv.ErrMiss)

	// the remote cart is untouched
	assert.Len(t, remote.lines, 1)
}

func TestForget(t *testing.T) {
	sut, remote, mem := newTestStore()
	ctx := customerCtx("u1")
	_, err := sut.Add(ctx, product("A", "Shirt", "10"), 1)
	require.NoError(t, err)
	_, err = sut.Add(customerCtx("u2"), product("B", "Socks", "5"), 1)
	require.NoError(t, err)

	require.NoError(t, sut.Forget(context.Background(), "u1"))
	require.NoError(t, sut.Forget(context.Background(), ""))

	_, err = mem.Get(context.Background(), kv.CartKey("u1"))
	assert.ErrorIs(t, err, kv.ErrMiss)
	_, err = mem.Get(context.Background(), kv.CartKey("u2"))
	assert.NoError(t, err)

	// next read reloads from the remote
	before := remote.callCount()
	cart, err := sut.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cart.Lines)
	assert.Equal(t, before+1, remote.callCount())
}
