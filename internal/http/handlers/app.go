package handlers

import (
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"storefront/internal/auth"
	applog "storefront/internal/log"
)

// MaxBodySize caps every request body.
const MaxBodySize = 1 << 20

type Options struct {
	// RateLimit is requests per minute per IP; zero disables the global limiter.
	RateLimit int
	// LoginLimit and AvailLimit override the per-route limits (5 per 10
	// minutes and 15 per 30 seconds) when positive.
	LoginLimit int
	AvailLimit int

	CSRF         bool
	CookieSecure bool
	// AccessLog receives one line per request; nil disables it.
	AccessLog io.Writer
	Policy    *auth.Policy
}

// NewApp builds the fiber app with middleware and routes. The server binary
// and the HTTP tests share it.
func NewApp(d *Deps, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       "storefront",
		BodyLimit:     MaxBodySize,
		CaseSensitive: true,
		ErrorHandler:  ErrorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	}
	app.Use(helmet.New())
	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/media/")
			},
			LimitReached: func(c *fiber.Ctx) error {
				c.Status(fiber.StatusTooManyRequests)
				applog.Security(c, "rate.global.hit", nil)
				return c.JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
			},
		}))
	}

	policy := auth.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	app.Use(Gate(d.Resolver, policy))

	if opts.CSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "header:X-Csrf-Token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieSecure:   opts.CookieSecure,
			ContextKey:     "csrf",
			// bearer clients send no ambient credentials
			Next: func(c *fiber.Ctx) bool {
				return principal(c).Via == "token" || c.Path() == "/auth/token"
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				c.Status(fiber.StatusForbidden)
				applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
				return c.JSON(fiber.Map{"error": "Security check failed. Please refresh and try again."})
			},
		}))
	}

	// ---------- Public ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/media/*", d.MediaHandler.Serve)

	loginLimiter := func(action string) fiber.Handler {
		return limiter.New(limiter.Config{
			Max:        positive(opts.LoginLimit, 5),
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP() + "|" + action
			},
			LimitReached: func(c *fiber.Ctx) error {
				c.Status(fiber.StatusTooManyRequests)
				applog.Security(c, "rate."+action+".hit", nil)
				return c.JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
			},
		})
	}
	app.Get("/login", d.AuthHandler.LoginInfo)
	app.Post("/login", loginLimiter("login"), d.AuthHandler.Login)
	app.Post("/auth/token", loginLimiter("token"), d.AuthHandler.Token)
	app.Post("/logout", d.AuthHandler.Logout)

	availLimiter := limiter.New(limiter.Config{
		Max:        positive(opts.AvailLimit, 15),
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Status(fiber.StatusTooManyRequests)
			applog.Security(c, "rate.availability.hit", nil)
			return c.JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	app.Get("/products", d.ProductHandler.List)
	app.Get("/products/:id", d.ProductHandler.Detail)
	app.Get("/products/:id/availability", availLimiter, d.InventoryHandler.Check)
	app.Get("/categories", d.CategoryHandler.List)

	app.Get("/state", d.StateHandler.Get)
	app.Post("/state/actions", d.StateHandler.Dispatch)

	// ---------- Signed in ----------
	app.Post("/checkout", d.OrderHandler.Checkout)
	app.Get("/orders", d.OrderHandler.History)
	app.Get("/orders/:id", d.OrderHandler.View)

	// ---------- Admin ----------
	admin := app.Group("/admin")
	admin.Get("/", d.AdminHandler.Dashboard)
	admin.Get("/products", d.AdminHandler.Products)
	admin.Post("/products", d.AdminHandler.CreateProduct)
	admin.Get("/products/:id", d.AdminHandler.Product)
	admin.Put("/products/:id", d.AdminHandler.UpdateProduct)
	admin.Delete("/products/:id", d.AdminHandler.DeleteProduct)
	admin.Get("/orders", d.AdminHandler.OrdersPage)
	admin.Get("/orders/:id", d.AdminHandler.Order)
	admin.Put("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.Get("/users", d.AdminHandler.UsersPage)
	admin.Delete("/users/:id", d.AdminHandler.DeleteUser)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
