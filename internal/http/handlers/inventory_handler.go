package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type InventoryHandler struct {
	Catalog *services.CatalogService
}

// GET /products/:id/availability
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return badRequest(c, "invalid productId")
	}
	a, err := h.Catalog.Availability(c.UserContext(), id)
	if err != nil {
		return respondError(c, "inventory.check.fail", err)
	}
	return c.JSON(fiber.Map{"productId": id, "status": a.Status, "qty": a.Qty})
}
