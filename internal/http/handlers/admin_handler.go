package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/query"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AdminHandler struct {
	Catalog *services.CatalogService
	Orders  *services.OrderService
	Users   *services.UserService
}

func adminID(c *fiber.Ctx) (string, bool) {
	return validate.ID(c.Params("id"))
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
}

// patchFields names the fields a payload set, for the audit trail.
func patchFields(p domain.ProductPatch) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.Description != nil, "description")
	add(p.Price != nil, "price")
	add(p.OfferPrice != nil, "offerPrice")
	add(p.Rating != nil, "rating")
	add(p.Category != nil, "category")
	add(p.Image != nil, "image")
	add(p.Stock != nil, "stock")
	add(p.Featured != nil, "featured")
	return out
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	one := query.Page{Number: 1, Size: 1}
	prods, err := h.Catalog.List(c.UserContext(), query.Products{Sort: query.DefaultSort, Page: one})
	if err != nil {
		return respondError(c, "admin.dashboard.fail", err)
	}
	orders, err := h.Orders.List(c.UserContext(), query.Orders{Sort: query.DefaultSort, Page: one})
	if err != nil {
		return respondError(c, "admin.dashboard.fail", err)
	}
	return render(c, fiber.StatusOK, fiber.Map{
		"products": prods.Pagination.TotalItems,
		"orders":   orders.Pagination.TotalItems,
	})
}

// GET /admin/products
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	l, err := h.Catalog.List(c.UserContext(), query.ParseProducts(c.Queries(), query.AdminPageSize))
	if err != nil {
		return respondError(c, "admin.products.list.fail", err)
	}
	return render(c, fiber.StatusOK, l)
}

// GET /admin/products/:id
func (h *AdminHandler) Product(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return notFound(c)
	}
	p, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, "admin.products.get.fail", err)
	}
	return render(c, fiber.StatusOK, p)
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var patch domain.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return badRequest(c, "invalid body")
	}
	p, err := h.Catalog.Create(c.UserContext(), patch)
	if err != nil {
		return respondError(c, "admin.products.create.fail", err)
	}
	c.Status(fiber.StatusCreated)
	applog.Audit(c, "admin.products.create", map[string]any{"product_id": p.ID, "fields": patchFields(patch)})
	return render(c, fiber.StatusCreated, p)
}

// PUT /admin/products/:id merges the supplied fields.
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return notFound(c)
	}
	var patch domain.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return badRequest(c, "invalid body")
	}
	p, err := h.Catalog.Update(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, "admin.products.update.fail", err)
	}
	applog.Audit(c, "admin.products.update", map[string]any{"product_id": id, "fields": patchFields(patch)})
	return render(c, fiber.StatusOK, p)
}

// DELETE /admin/products/:id answers 204 whether or not the product existed.
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := h.Catalog.Delete(c.UserContext(), id); err != nil {
		return respondError(c, "admin.products.delete.fail", err)
	}
	c.Status(fiber.StatusNoContent)
	applog.Audit(c, "admin.products.delete", map[string]any{"product_id": id})
	return nil
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	q := query.ParseOrders(c.Queries())
	q.UserID = strings.TrimSpace(c.Query("userId"))
	page, err := h.Orders.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, "admin.orders.list.fail", err)
	}
	return render(c, fiber.StatusOK, page)
}

// GET /admin/orders/:id
func (h *AdminHandler) Order(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return notFound(c)
	}
	o, err := h.Orders.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, "admin.orders.get.fail", err)
	}
	return render(c, fiber.StatusOK, o)
}

// PUT /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return notFound(c)
	}
	var body struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "status is required")
	}
	o, err := h.Orders.UpdateStatus(c.UserContext(), id, body.Status)
	if err != nil {
		return respondError(c, "admin.orders.update.fail", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": string(o.Status)})
	return render(c, fiber.StatusOK, o)
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List(c.UserContext())
	if err != nil {
		return respondError(c, "admin.users.list.fail", err)
	}
	return render(c, fiber.StatusOK, fiber.Map{"users": users})
}

// DELETE /admin/users/:id cancels the user's orders and removes the account.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	n, err := h.Users.Delete(c.UserContext(), id)
	if err != nil {
		return respondError(c, "admin.users.delete.fail", err)
	}
	c.Status(fiber.StatusNoContent)
	applog.Audit(c, "admin.users.delete", map[string]any{"target_user_id": id, "orders_cancelled": n})
	return nil
}
