package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/auth"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/store"
)

const principalKey = "principal"

// Gate resolves the caller once per request and enforces the path policy.
// Anonymous callers on a guarded path are sent to /login; signed-in callers
// without the level get 403.
func Gate(res *auth.Resolver, pol auth.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := res.Resolve(c.UserContext(), c.Cookies("sid"), c.Get(fiber.HeaderAuthorization))
		c.Locals(principalKey, p)
		if uid := p.UserID(); uid != "" {
			c.Locals("user_id", uid)
		}

		need := pol.Required(c.Path())
		if p.Satisfies(need) {
			return c.Next()
		}
		if p.Level == auth.Anonymous {
			return c.Redirect("/login", fiber.StatusFound)
		}
		c.Status(fiber.StatusForbidden)
		applog.Security(c, "access.denied.admin", map[string]any{"required": need.String(), "via": p.Via})
		return c.JSON(fiber.Map{"error": "access denied"})
	}
}

func principal(c *fiber.Ctx) auth.Principal {
	p, _ := c.Locals(principalKey).(auth.Principal)
	return p
}

func currentUser(c *fiber.Ctx) *domain.User {
	return principal(c).User
}

// stateKey picks where the caller's cart and wishlist live: the user for
// bearer clients, otherwise the session cookie.
func stateKey(c *fiber.Ctx) string {
	if p := principal(c); p.Via == "token" {
		return store.UserKey(p.UserID())
	}
	return c.Cookies("sid")
}
