package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/query"
)

// ErrNotOwner is reported as not found to the caller but lets handlers log
// the denial.
var ErrNotOwner = fmt.Errorf("%w: order belongs to another user", domain.ErrNotFound)

type OrderService struct {
	Products ProductStore
	Orders   OrderStore
	State    *StateService
	Events   events.Publisher
}

func NewOrderService(products ProductStore, orders OrderStore, state *StateService, pub events.Publisher) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{Products: products, Orders: orders, State: state, Events: pub}
}

// Checkout turns the cart stored under key into an order for userID. Lines
// are repriced from the product store, so client-side prices never count.
// Steps are not atomic: a failure after reservation keeps the reserved stock.
func (s *OrderService) Checkout(ctx context.Context, key, userID string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.Invalid("user", "is required")
	}
	cart, err := s.State.Store.LoadCart(ctx, key)
	if err != nil {
		return domain.Order{}, err
	}
	if len(cart) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	// pre-check stock and price every line
	items := make([]domain.OrderItem, 0, len(cart))
	total := decimal.Zero
	for _, line := range cart {
		p, err := s.Products.Get(ctx, line.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("%w: %s is no longer sold", domain.ErrInsufficientStock, line.ProductID)
		}
		if err != nil {
			return domain.Order{}, err
		}
		if p.Stock < line.Qty {
			return domain.Order{}, fmt.Errorf("%w for %s (need %d, have %d)", domain.ErrInsufficientStock, p.ID, line.Qty, p.Stock)
		}
		it := domain.OrderItem{ProductID: p.ID, Title: p.Title, Quantity: line.Qty, Price: p.EffectivePrice()}
		items = append(items, it)
		total = total.Add(it.Subtotal())
	}

	// reserve
	for _, it := range items {
		if err := s.Products.ReserveStock(ctx, it.ProductID, it.Quantity); err != nil {
			return domain.Order{}, fmt.Errorf("reserve %s: %w", it.ProductID, err)
		}
	}

	o := domain.Order{UserID: userID, Items: items, Total: total, Status: domain.StatusProcessing}
	if err := s.Orders.Create(ctx, &o); err != nil {
		return domain.Order{}, err
	}
	if err := s.State.Clear(ctx, key); err != nil {
		return o, fmt.Errorf("clear cart: %w", err)
	}
	publish(ctx, s.Events, events.New(events.OrderCreated, o.ID, o))
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.Orders.Get(ctx, id)
}

// GetFor returns the order only to its owner or an admin; anyone else gets
// ErrNotOwner, which matches domain.ErrNotFound.
func (s *OrderService) GetFor(ctx context.Context, id string, viewer *domain.User) (domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if viewer == nil || (o.UserID != viewer.ID && !viewer.IsAdmin()) {
		return domain.Order{}, ErrNotOwner
	}
	return o, nil
}

type OrderPage struct {
	Orders     []domain.Order   `json:"orders"`
	Pagination query.Pagination `json:"pagination"`
}

func (s *OrderService) List(ctx context.Context, q query.Orders) (OrderPage, error) {
	if q.Status != "" {
		if _, ok := domain.ParseOrderStatus(q.Status); !ok {
			return OrderPage{}, domain.Invalid("status", "must be one of processing, shipped, delivered, cancelled")
		}
	}
	orders, total, err := s.Orders.List(ctx, q)
	if err != nil {
		return OrderPage{}, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return OrderPage{Orders: orders, Pagination: query.NewPagination(q.Page, total)}, nil
}

// ListForUser scopes a listing to one user regardless of the query.
func (s *OrderService) ListForUser(ctx context.Context, userID string, q query.Orders) (OrderPage, error) {
	if userID == "" {
		return OrderPage{}, domain.Invalid("user", "is required")
	}
	q.UserID = userID
	return s.List(ctx, q)
}

// UpdateStatus changes only the status. A missing or unknown status leaves
// the order untouched.
func (s *OrderService) UpdateStatus(ctx context.Context, id, raw string) (domain.Order, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Order{}, domain.Invalid("status", "is required")
	}
	st, ok := domain.ParseOrderStatus(raw)
	if !ok {
		return domain.Order{}, domain.Invalid("status", "must be one of processing, shipped, delivered, cancelled")
	}
	o, err := s.Orders.UpdateStatus(ctx, id, st)
	if err != nil {
		return domain.Order{}, err
	}
	publish(ctx, s.Events, events.New(events.OrderStatus, o.ID, map[string]string{"status": string(o.Status)}))
	return o, nil
}
