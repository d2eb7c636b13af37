package handlers

import "github.com/gofiber/fiber/v2"

// render writes a JSON body and echoes the CSRF token so script clients can
// send it back on unsafe requests.
func render(c *fiber.Ctx, status int, data any) error {
	if tok, ok := c.Locals("csrf").(string); ok && tok != "" {
		c.Set("X-Csrf-Token", tok)
	}
	return c.Status(status).JSON(data)
}
