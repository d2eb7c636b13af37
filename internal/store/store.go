// Package store holds the shopper's cart, wishlist and auth state. Every
// action is a pure reducer: it returns a new State and never mutates the one
// it was given.
package store

import "github.com/shopspring/decimal"

type CartItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
}

type WishItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AuthState struct {
	IsLoggedIn bool         `json:"isLoggedIn"`
	User       *UserSummary `json:"user,omitempty"`
}

type State struct {
	Cart     []CartItem `json:"cart"`
	Wishlist []WishItem `json:"wishlist"`
	Auth     AuthState  `json:"auth"`
}

type Action interface {
	Reduce(State) State
}

// Reduce applies actions in order.
func Reduce(s State, actions ...Action) State {
	for _, a := range actions {
		s = a.Reduce(s)
	}
	return s
}

type AddToCart struct{ Item CartItem }

func (a AddToCart) Reduce(s State) State {
	item := a.Item
	if item.Qty < 1 {
		item.Qty = 1
	}
	cart := make([]CartItem, 0, len(s.Cart)+1)
	merged := false
	for _, it := range s.Cart {
		if it.ProductID == item.ProductID {
			it.Qty += item.Qty
			it.Price = item.Price
			it.Title = item.Title
			it.Image = item.Image
			merged = true
		}
		cart = append(cart, it)
	}
	if !merged {
		cart = append(cart, item)
	}
	s.Cart = cart
	return s
}

type RemoveFromCart struct{ ProductID string }

func (a RemoveFromCart) Reduce(s State) State {
	cart := make([]CartItem, 0, len(s.Cart))
	for _, it := range s.Cart {
		if it.ProductID != a.ProductID {
			cart = append(cart, it)
		}
	}
	s.Cart = cart
	return s
}

// SetCartQty overwrites a line's quantity; zero or less removes the line.
type SetCartQty struct {
	ProductID string
	Qty       int
}

func (a SetCartQty) Reduce(s State) State {
	if a.Qty <= 0 {
		return RemoveFromCart{ProductID: a.ProductID}.Reduce(s)
	}
	cart := make([]CartItem, len(s.Cart))
	copy(cart, s.Cart)
	for i := range cart {
		if cart[i].ProductID == a.ProductID {
			cart[i].Qty = a.Qty
		}
	}
	s.Cart = cart
	return s
}

type ClearCart struct{}

func (ClearCart) Reduce(s State) State {
	s.Cart = []CartItem{}
	return s
}

type AddToWishlist struct{ Item WishItem }

func (a AddToWishlist) Reduce(s State) State {
	if InWishlist(s, a.Item.ProductID) {
		return s
	}
	wl := make([]WishItem, len(s.Wishlist), len(s.Wishlist)+1)
	copy(wl, s.Wishlist)
	s.Wishlist = append(wl, a.Item)
	return s
}

type RemoveFromWishlist struct{ ProductID string }

func (a RemoveFromWishlist) Reduce(s State) State {
	wl := make([]WishItem, 0, len(s.Wishlist))
	for _, it := range s.Wishlist {
		if it.ProductID != a.ProductID {
			wl = append(wl, it)
		}
	}
	s.Wishlist = wl
	return s
}

type LoggedIn struct{ User UserSummary }

func (a LoggedIn) Reduce(s State) State {
	u := a.User
	s.Auth = AuthState{IsLoggedIn: true, User: &u}
	return s
}

type LoggedOut struct{}

func (LoggedOut) Reduce(s State) State {
	s.Auth = AuthState{}
	return s
}

// UserKey is the persistence key for bearer clients, which carry no session
// cookie.
func UserKey(userID string) string { return "user:" + userID }
