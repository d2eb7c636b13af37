package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/query"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
}

// POST /checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	uid := principal(c).UserID()
	o, err := h.Order.Checkout(c.UserContext(), stateKey(c), uid)
	if err != nil {
		return respondError(c, "order.checkout.fail", err)
	}
	c.Status(fiber.StatusCreated)
	applog.Audit(c, "order.created", map[string]any{"order_id": o.ID, "total": o.Total.String(), "items": len(o.Items)})
	return render(c, fiber.StatusCreated, o)
}

// GET /orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	page, err := h.Order.ListForUser(c.UserContext(), principal(c).UserID(), query.ParseOrders(c.Queries()))
	if err != nil {
		return respondError(c, "order.list.fail", err)
	}
	return render(c, fiber.StatusOK, page)
}

// GET /orders/:id is visible to the owner and admins only; everyone else
// gets the same 404 as for a missing order.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	o, err := h.Order.GetFor(c.UserContext(), id, currentUser(c))
	if errors.Is(err, services.ErrNotOwner) {
		c.Status(fiber.StatusNotFound)
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
	}
	if err != nil {
		return respondError(c, "order.view.fail", err)
	}
	return render(c, fiber.StatusOK, o)
}
