package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/query"
	"storefront/internal/services"
	"storefront/internal/store"
)

func TestOrderFlow_AddCartCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := "test-session"

	st, err := f.state.Dispatch(ctx, sid, nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "gbc-001", Qty: 2})
	require.NoError(t, err)
	require.Len(t, st.Cart, 1)
	assert.True(t, store.TotalPrice(st).Equal(decimal.RequireFromString("259.98")))

	o, err := f.orders.Checkout(ctx, sid, "u-alice")
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, domain.StatusProcessing, o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("259.98")), o.Total.String())

	// stock decremented from 8 to 6
	p, err := f.catalog.Get(ctx, "gbc-001")
	require.NoError(t, err)
	assert.Equal(t, 6, p.Stock)

	// cart cleared
	st, err = f.state.Load(ctx, sid, nil)
	require.NoError(t, err)
	assert.Empty(t, st.Cart)

	assert.Contains(t, f.pub.types(), events.OrderCreated)
}

func TestCheckoutUsesEffectivePriceNotCartPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a tampered cart line: price far below the real one
	require.NoError(t, f.carts.SaveCart(ctx, "sid", []store.CartItem{
		{ProductID: "nes-001", Title: "NES", Price: decimal.RequireFromString("0.01"), Qty: 1},
	}))

	o, err := f.orders.Checkout(ctx, "sid", "u-alice")
	require.NoError(t, err)
	// nes-001 lists at 199.00 with a 179.00 offer
	assert.True(t, o.Total.Equal(decimal.NewFromInt(179)), o.Total.String())
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Price.Equal(decimal.NewFromInt(179)))
}

func TestCheckoutRejectsEmptyCartAndShortStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.Checkout(ctx, "empty", "u-alice")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	// radio-001 has 2 in stock
	_, err = f.state.Dispatch(ctx, "sid", nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "radio-001", Qty: 3})
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, "sid", "u-alice")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, err := f.catalog.Get(ctx, "radio-001")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock, "failed pre-check must not reserve")
}

func TestOrderVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.state.Dispatch(ctx, "sid", nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "walkman-001"})
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, "sid", "u-alice")
	require.NoError(t, err)

	alice := &domain.User{ID: "u-alice", Role: domain.RoleUser}
	bob := &domain.User{ID: "u-bob", Role: domain.RoleUser}
	admin := &domain.User{ID: "u-admin", Role: domain.RoleAdmin}

	_, err = f.orders.GetFor(ctx, o.ID, alice)
	assert.NoError(t, err)
	_, err = f.orders.GetFor(ctx, o.ID, admin)
	assert.NoError(t, err)
	_, err = f.orders.GetFor(ctx, o.ID, bob)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, services.ErrNotOwner)

	page, err := f.orders.ListForUser(ctx, "u-bob", query.ParseOrders(nil))
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Equal(t, 0, page.Pagination.TotalPages)
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.state.Dispatch(ctx, "sid", nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "walkman-001"})
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, "sid", "u-alice")
	require.NoError(t, err)

	var ve *domain.ValidationError
	_, err = f.orders.UpdateStatus(ctx, o.ID, "")
	assert.ErrorAs(t, err, &ve)
	_, err = f.orders.UpdateStatus(ctx, o.ID, "lost")
	assert.ErrorAs(t, err, &ve)

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	got, err = f.orders.UpdateStatus(ctx, o.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Status)

	_, err = f.orders.UpdateStatus(ctx, "missing", "shipped")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUserCancelsOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.state.Dispatch(ctx, "sid", nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "walkman-001"})
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, "sid", "u-alice")
	require.NoError(t, err)

	n, err := f.users.Delete(ctx, "u-alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	// second delete is a no-op
	n, err = f.users.Delete(ctx, "u-alice")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrdersNeedAUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.orders.Checkout(ctx, "sid-bob", "u-bob")
	require.Error(t, err) // empty cart
	_, err = f.state.Dispatch(ctx, "sid-bob", nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "gbc-001"})
	require.NoError(t, err)
	o, err = f.orders.Checkout(ctx, "sid-bob", "u-bob")
	require.NoError(t, err)

	// an empty user id must not widen the listing to every account
	_, err = f.orders.ListForUser(ctx, "", query.Orders{Sort: query.DefaultSort, Page: query.Page{Number: 1, Size: 10}})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.state.Dispatch(ctx, "sid-anon", nil, services.ActionRequest{Type: services.ActCartAdd, ProductID: "gbc-001"})
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, "sid-anon", "")
	require.ErrorAs(t, err, &ve)

	page, err := f.orders.List(ctx, query.Orders{Sort: query.DefaultSort, Page: query.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, o.ID, page.Orders[0].ID)
}
