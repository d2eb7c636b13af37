package handlers

import (
	"path/filepath"

	"storefront/internal/auth"
	"storefront/internal/events"
	"storefront/internal/services"
)

// Stores is everything the handlers need from the storage layer. Products
// and Orders may be SQL or Mongo backed, optionally cached.
type Stores struct {
	Products services.ProductStore
	Orders   services.OrderStore
	Users    services.UserStore
	State    services.StateStore
}

type Deps struct {
	Resolver *auth.Resolver

	AuthHandler      *AuthHandler
	ProductHandler   *ProductHandler
	CategoryHandler  *CategoryHandler
	InventoryHandler *InventoryHandler
	StateHandler     *StateHandler
	OrderHandler     *OrderHandler
	AdminHandler     *AdminHandler
	MediaHandler     *MediaHandler
}

type DepsConfig struct {
	Tokens       *auth.Tokens
	Events       events.Publisher
	MediaDir     string
	CookieSecure bool
}

func NewDeps(st Stores, cfg DepsConfig) *Deps {
	authSvc := services.NewAuthService(st.Users, cfg.Tokens)
	catalogSvc := services.NewCatalogService(st.Products, cfg.Events)
	stateSvc := services.NewStateService(st.State, st.Products)
	orderSvc := services.NewOrderService(st.Products, st.Orders, stateSvc, cfg.Events)
	userSvc := services.NewUserService(st.Users, st.Orders)

	mediaDir := cfg.MediaDir
	if abs, err := filepath.Abs(mediaDir); err == nil {
		mediaDir = abs
	}

	return &Deps{
		Resolver:         &auth.Resolver{Sessions: authSvc, Users: st.Users, Tokens: cfg.Tokens},
		AuthHandler:      &AuthHandler{Auth: authSvc, CookieSecure: cfg.CookieSecure},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		CategoryHandler:  &CategoryHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Catalog: catalogSvc},
		StateHandler:     &StateHandler{State: stateSvc, CookieSecure: cfg.CookieSecure},
		OrderHandler:     &OrderHandler{Order: orderSvc},
		AdminHandler:     &AdminHandler{Catalog: catalogSvc, Orders: orderSvc, Users: userSvc},
		MediaHandler:     &MediaHandler{Dir: mediaDir},
	}
}
