package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "storefront/internal/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestRequestScopedFields(t *testing.T) {
	var buf bytes.Buffer
	restore := applog.SetOutput(&buf)
	defer restore()

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		applog.Audit(c, "thing.save", map[string]any{"id": "p1"})
		applog.Error(c, "thing.fail", errors.New("boom"), nil)
		return c.SendStatus(fiber.StatusNoContent)
	})
	_, err := app.Test(httptest.NewRequest("GET", "/x", nil), -1)
	require.NoError(t, err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	audit := lines[0]
	assert.Equal(t, "audit", audit["level"])
	assert.Equal(t, "thing.save", audit["action"])
	assert.Equal(t, "GET", audit["method"])
	assert.Equal(t, "/x", audit["path"])
	assert.NotEmpty(t, audit["req_id"])
	assert.Equal(t, map[string]any{"id": "p1"}, audit["fields"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["err"])
}

func TestInitFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	applog.Init("warn", &buf)
	defer applog.Init("info", &bytes.Buffer{})

	applog.Info(nil, "quiet", nil)
	applog.Security(nil, "loud", nil)
	applog.Audit(nil, "always", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "loud", lines[0]["action"])
	assert.Equal(t, "always", lines[1]["action"])
}
