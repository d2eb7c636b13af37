package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/query"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := query.ParseProducts(c.Queries(), query.DefaultPageSize)
	l, err := h.Catalog.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, "catalog.list.fail", err)
	}
	return render(c, fiber.StatusOK, l)
}

// GET /products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "product"})
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	p, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, "catalog.get.fail", err)
	}
	return render(c, fiber.StatusOK, p)
}
