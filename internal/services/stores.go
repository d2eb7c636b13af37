package services

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/query"
	"storefront/internal/store"
)

// ProductStore is implemented by the SQL repos, the Mongo store and the redis
// cache decorator. Missing ids surface as domain.ErrNotFound.
type ProductStore interface {
	List(ctx context.Context, q query.Products) ([]domain.Product, int, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	// Create assigns ID and timestamps when they are empty.
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]string, error)
	// ReserveStock decrements stock only when at least qty units remain.
	ReserveStock(ctx context.Context, id string, qty int) error
}

type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, q query.Orders) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error)
	// CancelForUser cancels the user's open orders and returns how many changed.
	CancelForUser(ctx context.Context, userID string) (int, error)
}

type UserStore interface {
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	BindSession(ctx context.Context, sid, userID string) error
	SessionUser(ctx context.Context, sid string) (*domain.User, error)
	UnbindSession(ctx context.Context, sid string) error
	DeleteCascade(ctx context.Context, userID string) error
}

// StateStore persists cart and wishlist lines under a state key.
type StateStore interface {
	LoadCart(ctx context.Context, key string) ([]store.CartItem, error)
	SaveCart(ctx context.Context, key string, items []store.CartItem) error
	LoadWishlist(ctx context.Context, key string) ([]store.WishItem, error)
	SaveWishlist(ctx context.Context, key string, items []store.WishItem) error
}
