package handlers_test

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	"storefront/internal/store"
)

func TestCheckoutRecomputesTotals(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	alice := env.signIn(t, "sid-alice", "u-alice")

	// a client-side price the server must not trust
	require.NoError(t, env.state.SaveCart(testContext(t), "sid-alice", []store.CartItem{
		{ProductID: "nes-001", Title: "NES", Price: decimal.RequireFromString("0.01"), Qty: 2},
	}))

	resp := env.do(t, http.MethodPost, "/checkout", nil, alice)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[domain.Order](t, resp)
	assert.Equal(t, "u-alice", o.UserID)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(358)), o.Total.String())
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Price.Equal(decimal.NewFromInt(179)))

	p, err := env.prods.Get(testContext(t), "nes-001")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	resp = env.do(t, http.MethodGet, "/state", nil, alice)
	view := decode[struct {
		State store.State `json:"state"`
	}](t, resp)
	assert.Empty(t, view.State.Cart)
	assert.True(t, view.State.Auth.IsLoggedIn)
}

func TestCheckoutConflictsAndEmptyCart(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	bob := env.signIn(t, "sid-bob", "u-bob")

	resp := env.do(t, http.MethodPost, "/checkout", nil, bob)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "cart empty", decode[map[string]string](t, resp)["error"])

	require.NoError(t, env.state.SaveCart(testContext(t), "sid-bob", []store.CartItem{
		{ProductID: "radio-001", Qty: 3},
	}))
	resp = env.do(t, http.MethodPost, "/checkout", nil, bob)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	p, err := env.prods.Get(testContext(t), "radio-001")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestOrderVisibility(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	o := &domain.Order{
		UserID: "u-bob",
		Items:  []domain.OrderItem{{ProductID: "gbc-001", Title: "Game Boy", Quantity: 1, Price: decimal.RequireFromString("129.99")}},
		Total:  decimal.RequireFromString("129.99"),
	}
	require.NoError(t, env.orders.Create(testContext(t), o))

	alice := env.signIn(t, "sid-alice", "u-alice")
	var resp *http.Response
	logs := captureLogs(t, func() {
		resp = env.do(t, http.MethodGet, "/orders/"+o.ID, nil, alice)
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	e, ok := findAction(logs, "access.denied.order")
	require.True(t, ok)
	assert.Equal(t, "u-alice", e.UserID)
	assert.Equal(t, o.ID, e.Fields["order_id"])

	// indistinguishable from a missing order
	resp = env.do(t, http.MethodGet, "/orders/does-not-exist", nil, alice)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/orders/"+o.ID, nil, env.signIn(t, "sid-bob", "u-bob"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/orders/"+o.ID, nil, env.signIn(t, "sid-admin", "u-admin"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/orders", nil, alice)
	page := decode[struct {
		Orders []domain.Order `json:"orders"`
	}](t, resp)
	assert.Empty(t, page.Orders)
}

func TestAdminStatusUpdate(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	o := &domain.Order{UserID: "u-alice", Total: decimal.NewFromInt(10)}
	require.NoError(t, env.orders.Create(testContext(t), o))
	admin := env.signIn(t, "sid-admin", "u-admin")

	for _, body := range []any{map[string]string{}, map[string]string{"status": "lost"}} {
		resp := env.do(t, http.MethodPut, "/admin/orders/"+o.ID+"/status", body, admin)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	got, err := env.orders.Get(testContext(t), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	var resp *http.Response
	logs := captureLogs(t, func() {
		resp = env.do(t, http.MethodPut, "/admin/orders/"+o.ID+"/status", map[string]string{"status": "shipped"}, admin)
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusShipped, decode[domain.Order](t, resp).Status)
	e, ok := findAction(logs, "admin.orders.update")
	require.True(t, ok)
	assert.Equal(t, "audit", e.Level)

	resp = env.do(t, http.MethodPut, "/admin/orders/missing/status", map[string]string{"status": "shipped"}, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
