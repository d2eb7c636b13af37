package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/store"
)

type StateHandler struct {
	State        *services.StateService
	CookieSecure bool
}

type stateView struct {
	State  store.State  `json:"state"`
	Totals store.Totals `json:"totals"`
}

func viewOf(st store.State) stateView {
	return stateView{State: st, Totals: store.TotalsOf(st)}
}

// GET /state
func (h *StateHandler) Get(c *fiber.Ctx) error {
	st, err := h.State.Load(c.UserContext(), stateKey(c), currentUser(c))
	if err != nil {
		return respondError(c, "state.load.fail", err)
	}
	return render(c, fiber.StatusOK, viewOf(st))
}

// POST /state/actions
func (h *StateHandler) Dispatch(c *fiber.Ctx) error {
	var req services.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return badRequest(c, "invalid body")
	}
	key := stateKey(c)
	if key == "" {
		key = ensureSID(c, h.CookieSecure)
	}
	st, err := h.State.Dispatch(c.UserContext(), key, currentUser(c), req)
	if err != nil {
		return respondError(c, "state.dispatch.fail", err)
	}
	applog.Info(c, "state.action", map[string]any{"type": req.Type, "product_id": req.ProductID, "qty": req.Qty})
	return render(c, fiber.StatusOK, viewOf(st))
}
