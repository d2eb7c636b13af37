package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	CookieSecure bool
}

type credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) sidCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     "sid",
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
		Expires:  expires,
	}
}

func ensureSID(c *fiber.Ctx, secure bool) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   secure,
		})
	}
	return sid
}

func (h *AuthHandler) readCredentials(c *fiber.Ctx, failAction string) (credentials, bool) {
	var cr credentials
	if err := c.BodyParser(&cr); err != nil {
		applog.Security(c, failAction, map[string]any{"reason": "bad_body"})
		return cr, false
	}
	email, ok := validate.Email(cr.Email)
	if !ok {
		applog.Security(c, failAction, map[string]any{"email": cr.Email, "reason": "bad_format"})
		return cr, false
	}
	cr.Email = email
	if !validate.Password(cr.Password) {
		applog.Security(c, failAction, map[string]any{"email": email, "reason": "bad_password_format"})
		return cr, false
	}
	return cr, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
}

// POST /login binds the session cookie to the account.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c, h.CookieSecure)
	c.Status(fiber.StatusUnauthorized)
	cr, ok := h.readCredentials(c, "auth.login.fail")
	if !ok {
		return unauthorized(c)
	}

	u, err := h.Auth.Login(c.UserContext(), sid, cr.Email, cr.Password)
	if errors.Is(err, services.ErrBadCreds) {
		applog.Security(c, "auth.login.fail", map[string]any{"email": cr.Email})
		return unauthorized(c)
	}
	if err != nil {
		return respondError(c, "auth.login.error", err)
	}

	c.Locals("user_id", u.ID)
	c.Status(fiber.StatusOK)
	applog.Audit(c, "auth.login.success", map[string]any{"email": cr.Email})
	return render(c, fiber.StatusOK, fiber.Map{"user": u})
}

// POST /auth/token exchanges credentials for a bearer token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	c.Status(fiber.StatusUnauthorized)
	cr, ok := h.readCredentials(c, "auth.token.fail")
	if !ok {
		return unauthorized(c)
	}
	tok, exp, u, err := h.Auth.IssueToken(c.UserContext(), cr.Email, cr.Password)
	if errors.Is(err, services.ErrBadCreds) {
		applog.Security(c, "auth.token.fail", map[string]any{"email": cr.Email})
		return unauthorized(c)
	}
	if err != nil {
		return respondError(c, "auth.token.error", err)
	}

	c.Locals("user_id", u.ID)
	c.Status(fiber.StatusOK)
	applog.Audit(c, "auth.token.issue", map[string]any{"email": cr.Email, "expires_at": exp.UTC().Format(time.RFC3339)})
	return c.JSON(fiber.Map{"token": tok, "tokenType": "Bearer", "expiresAt": exp.UTC(), "user": u})
}

// POST /logout unbinds the session and expires the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return respondError(c, "auth.logout.error", err)
		}
	}
	c.Cookie(h.sidCookie("", time.Now().Add(-1*time.Hour)))
	c.Status(fiber.StatusNoContent)
	applog.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return nil
}

// GET /login is where guarded paths redirect anonymous callers. It also
// hands out a CSRF token for the POST.
func (h *AuthHandler) LoginInfo(c *fiber.Ctx) error {
	body := fiber.Map{"error": "login required", "login": "POST /login", "token": "POST /auth/token"}
	if tok, ok := c.Locals("csrf").(string); ok && tok != "" {
		body["csrfToken"] = tok
	}
	return render(c, fiber.StatusUnauthorized, body)
}
