package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/events"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

type testEnv struct {
	app    *fiber.App
	db     *sqlx.DB
	users  *repos.UserRepo
	state  *repos.StateRepo
	prods  *repos.ProductRepo
	orders *repos.OrderRepo
	tokens *auth.Tokens
	media  string
}

func newEnv(t *testing.T, opts handlers.Options) *testEnv {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:     db,
		users:  repos.NewUserRepo(db),
		state:  repos.NewStateRepo(db),
		prods:  repos.NewProductRepo(db),
		orders: repos.NewOrderRepo(db),
		tokens: auth.NewTokens("test-secret", time.Hour),
		media:  t.TempDir(),
	}
	deps := handlers.NewDeps(handlers.Stores{
		Products: env.prods,
		Orders:   env.orders,
		Users:    env.users,
		State:    env.state,
	}, handlers.DepsConfig{
		Tokens:   env.tokens,
		Events:   events.Nop{},
		MediaDir: env.media,
	})
	env.app = handlers.NewApp(deps, opts)
	return env
}

type reqOpt func(*http.Request)

func withSID(sid string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: sid}) }
}

func withBearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCSRF(tok string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
		r.Header.Set("X-Csrf-Token", tok)
	}
}

// do sends body as JSON when it is not a string; strings go out as form data.
func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...reqOpt) *http.Response {
	t.Helper()
	var rd io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
		contentType = "application/json"
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// signIn binds a session for one of the seeded users.
func (e *testEnv) signIn(t *testing.T, sid, userID string) reqOpt {
	t.Helper()
	require.NoError(t, e.users.BindSession(testContext(t), sid, userID))
	return withSID(sid)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Status int            `json:"status"`
	UserID string         `json:"user_id"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

// captureLogs collects the structured lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	w := &lockedWriter{}
	restore := applog.SetOutput(w)
	fn()
	restore()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(w.b.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
