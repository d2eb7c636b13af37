package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/http/handlers"
)

func TestErrorHandlerHidesInternals(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(recover.New())
	app.Get("/boom", func(c *fiber.Ctx) error { panic("db password is hunter2") })
	app.Get("/bad", func(c *fiber.Ctx) error { return fiber.ErrBadRequest })

	var resp *http.Response
	logs := captureLogs(t, func() {
		var err error
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
		require.NoError(t, err)
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := bodyString(t, resp)
	assert.Contains(t, body, "Something went wrong")
	assert.NotContains(t, body, "hunter2")

	e, ok := findAction(logs, "server.error")
	require.True(t, ok)
	assert.Equal(t, "error", e.Level)
	assert.Equal(t, http.StatusInternalServerError, e.Status)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/bad", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStorageFailureIsRetryable(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	require.NoError(t, env.db.Close())

	var resp *http.Response
	logs := captureLogs(t, func() {
		resp = env.do(t, http.MethodGet, "/products", nil)
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	got := decode[map[string]string](t, resp)
	assert.Equal(t, "temporarily unavailable, retry", got["error"])

	e, ok := findAction(logs, "catalog.list.fail")
	require.True(t, ok)
	assert.Equal(t, "error", e.Level)
	assert.NotEmpty(t, e.Err)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	env := newEnv(t, handlers.Options{})
	resp := env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", decode[map[string]string](t, resp)["error"])

	resp = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
