package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/http/handlers"
)

func TestAvailabilityRateLimit(t *testing.T) {
	env := newEnv(t, handlers.Options{AvailLimit: 3})
	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodGet, "/products/gbc-001/availability", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	var resp *http.Response
	logs := captureLogs(t, func() {
		resp = env.do(t, http.MethodGet, "/products/gbc-001/availability", nil)
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	e, ok := findAction(logs, "rate.availability.hit")
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, e.Status)

	// other routes are unaffected
	resp = env.do(t, http.MethodGet, "/products/gbc-001", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGlobalRateLimitSkipsMedia(t *testing.T) {
	env := newEnv(t, handlers.Options{RateLimit: 2})
	env.do(t, http.MethodGet, "/healthz", nil)
	env.do(t, http.MethodGet, "/healthz", nil)
	resp := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/media/missing.png", nil)
	assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestBodySizeLimit(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	big := `{"email":"alice@storefront.test","password":"` + strings.Repeat("a", handlers.MaxBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(big))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req, -1)
	if err != nil {
		// fasthttp may reject the body before a response is built
		assert.Contains(t, err.Error(), "body size exceeds")
		return
	}
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
