package handlers_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/http/handlers"
)

func TestCSRFProtectsCookieSessions(t *testing.T) {
	env := newEnv(t, handlers.Options{CSRF: true})

	resp := env.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	tok := cookieValue(resp, "csrf_")
	require.NotEmpty(t, tok)
	assert.Equal(t, tok, resp.Header.Get("X-Csrf-Token"))
	assert.Equal(t, tok, decode[map[string]any](t, resp)["csrfToken"])

	action := map[string]any{"type": "cart/add", "productId": "gbc-001"}
	var denied *http.Response
	logs := captureLogs(t, func() {
		denied = env.do(t, http.MethodPost, "/state/actions", action, withSID("sid-x"))
	})
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)
	_, ok := findAction(logs, "csrf.fail")
	assert.True(t, ok)

	resp = env.do(t, http.MethodPost, "/state/actions", action, withSID("sid-x"), withCSRF(tok))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// bearer clients carry no ambient credentials and skip the check
	resp = env.do(t, http.MethodPost, "/auth/token", map[string]string{"email": "alice@storefront.test", "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bearer := decode[map[string]any](t, resp)["token"].(string)
	resp = env.do(t, http.MethodPost, "/state/actions", action, withBearer(bearer))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMediaServesFilesAndBlocksTraversal(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	require.NoError(t, os.WriteFile(filepath.Join(env.media, "nes.txt"), []byte("cartridge"), 0o644))

	resp := env.do(t, http.MethodGet, "/media/nes.txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cartridge", bodyString(t, resp))

	for _, path := range []string{"/media/..%2f..%2fetc%2fpasswd", "/media/%2e%2e/secret"} {
		var r *http.Response
		logs := captureLogs(t, func() {
			r = env.do(t, http.MethodGet, path, nil)
		})
		assert.Equal(t, http.StatusNotFound, r.StatusCode, path)
		_, ok := findAction(logs, "media.traversal.block")
		assert.True(t, ok, path)
	}
}
