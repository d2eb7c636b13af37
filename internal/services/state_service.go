package services

import (
	"context"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/store"
	"storefront/internal/validate"
)

// Action types accepted by Dispatch.
const (
	ActCartAdd        = "cart/add"
	ActCartRemove     = "cart/remove"
	ActCartSetQty     = "cart/setQty"
	ActCartClear      = "cart/clear"
	ActWishlistAdd    = "wishlist/add"
	ActWishlistRemove = "wishlist/remove"
)

type ActionRequest struct {
	Type      string `json:"type"`
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// StateService loads, reduces and persists the shopper state. Prices and
// titles always come from the product store.
type StateService struct {
	Store    StateStore
	Products ProductStore
}

func NewStateService(st StateStore, products ProductStore) *StateService {
	return &StateService{Store: st, Products: products}
}

// Load returns the persisted cart and wishlist with auth derived from user
// (nil means anonymous).
func (s *StateService) Load(ctx context.Context, key string, user *domain.User) (store.State, error) {
	st := store.State{Cart: []store.CartItem{}, Wishlist: []store.WishItem{}}
	if key != "" {
		cart, err := s.Store.LoadCart(ctx, key)
		if err != nil {
			return store.State{}, err
		}
		wl, err := s.Store.LoadWishlist(ctx, key)
		if err != nil {
			return store.State{}, err
		}
		st.Cart, st.Wishlist = cart, wl
	}
	if user == nil {
		return store.Reduce(st, store.LoggedOut{}), nil
	}
	return store.Reduce(st, store.LoggedIn{User: store.UserSummary{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role,
	}}), nil
}

// Dispatch applies one action and persists the part of the state it touched.
func (s *StateService) Dispatch(ctx context.Context, key string, user *domain.User, req ActionRequest) (store.State, error) {
	if key == "" {
		return store.State{}, domain.Invalid("session", "is required")
	}
	action, cartChanged, err := s.action(ctx, req)
	if err != nil {
		return store.State{}, err
	}
	cur, err := s.Load(ctx, key, user)
	if err != nil {
		return store.State{}, err
	}
	next := store.Reduce(cur, action)
	if cartChanged {
		err = s.Store.SaveCart(ctx, key, next.Cart)
	} else {
		err = s.Store.SaveWishlist(ctx, key, next.Wishlist)
	}
	if err != nil {
		return store.State{}, err
	}
	return next, nil
}

// Clear empties the cart, e.g. after checkout.
func (s *StateService) Clear(ctx context.Context, key string) error {
	return s.Store.SaveCart(ctx, key, nil)
}

func (s *StateService) action(ctx context.Context, req ActionRequest) (store.Action, bool, error) {
	typ := strings.TrimSpace(req.Type)
	if typ == ActCartClear {
		return store.ClearCart{}, true, nil
	}

	pid, ok := validate.ID(req.ProductID)
	if !ok {
		return nil, false, domain.Invalid("productId", "is required")
	}
	switch typ {
	case ActCartAdd:
		p, err := s.Products.Get(ctx, pid)
		if err != nil {
			return nil, false, err
		}
		qty := req.Qty
		if qty < 1 {
			qty = 1
		}
		return store.AddToCart{Item: store.CartItem{
			ProductID: p.ID, Title: p.Title, Image: p.Image, Price: p.EffectivePrice(), Qty: validate.Qty(qty),
		}}, true, nil
	case ActCartRemove:
		return store.RemoveFromCart{ProductID: pid}, true, nil
	case ActCartSetQty:
		return store.SetCartQty{ProductID: pid, Qty: validate.Qty(req.Qty)}, true, nil
	case ActWishlistAdd:
		p, err := s.Products.Get(ctx, pid)
		if err != nil {
			return nil, false, err
		}
		return store.AddToWishlist{Item: store.WishItem{
			ProductID: p.ID, Title: p.Title, Image: p.Image, Price: p.EffectivePrice(),
		}}, false, nil
	case ActWishlistRemove:
		return store.RemoveFromWishlist{ProductID: pid}, false, nil
	}
	return nil, false, domain.Invalid("type", "unknown action")
}
