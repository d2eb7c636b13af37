package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/http/handlers"
)

func TestAdminGuard(t *testing.T) {
	env := newEnv(t, handlers.Options{})

	resp := env.do(t, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	alice := env.signIn(t, "sid-alice", "u-alice")
	var logs []logEntry
	logs = captureLogs(t, func() {
		resp = env.do(t, http.MethodGet, "/admin/products", nil, alice)
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "access denied", decode[map[string]string](t, resp)["error"])
	e, ok := findAction(logs, "access.denied.admin")
	require.True(t, ok)
	assert.Equal(t, "warn", e.Level)
	assert.Equal(t, "u-alice", e.UserID)
	assert.Equal(t, http.StatusForbidden, e.Status)

	admin := env.signIn(t, "sid-admin", "u-admin")
	resp = env.do(t, http.MethodGet, "/admin", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dash := decode[map[string]int](t, resp)
	assert.Equal(t, 6, dash["products"])
	assert.Equal(t, 0, dash["orders"])
}

func TestSignedInRoutesRedirectAnonymous(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/checkout"},
		{http.MethodGet, "/orders"},
		{http.MethodGet, "/orders/abc"},
	} {
		resp := env.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode, tc.path)
	}
}

func TestBearerTokenGrantsAdmin(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	admin, err := env.users.ByID(testContext(t), "u-admin")
	require.NoError(t, err)
	tok, _, err := env.tokens.Issue(admin)
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/admin/users", nil, withBearer(tok))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Users []map[string]any `json:"users"`
	}](t, resp)
	require.Len(t, got.Users, 3)
	assert.Equal(t, "ADMIN", got.Users[0]["role"])
	assert.NotContains(t, got.Users[0], "password_hash")

	resp = env.do(t, http.MethodGet, "/admin", nil, withBearer("not-a-token"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestGuardsIgnorePathCase(t *testing.T) {
	env := newEnv(t, handlers.Options{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/ADMIN/users"},
		{http.MethodGet, "/Admin/products"},
		{http.MethodDelete, "/Admin/products/nes-001"},
		{http.MethodGet, "/Orders"},
		{http.MethodPost, "/CHECKOUT"},
	} {
		resp := env.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode, tc.path)
	}
	_, err := env.prods.Get(testContext(t), "nes-001")
	require.NoError(t, err)

	alice := env.signIn(t, "sid-alice", "u-alice")
	resp := env.do(t, http.MethodGet, "/ADMIN/users", nil, alice)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBearerTokenDiesWithAccount(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	bob, err := env.users.ByID(testContext(t), "u-bob")
	require.NoError(t, err)
	tok, _, err := env.tokens.Issue(bob)
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/orders", nil, withBearer(tok))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/admin/users/u-bob", nil, env.signIn(t, "sid-admin", "u-admin"))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/orders", nil, withBearer(tok))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
