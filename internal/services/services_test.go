package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"storefront/internal/events"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db      *sqlx.DB
	pub     *recorder
	carts   *repos.StateRepo
	catalog *services.CatalogService
	state   *services.StateService
	orders  *services.OrderService
	users   *services.UserService
}

func newFixture(t *testing.T) fixture {
	db := memdb(t)
	pub := &recorder{}
	prods := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	carts := repos.NewStateRepo(db)
	state := services.NewStateService(carts, prods)
	return fixture{
		db:      db,
		pub:     pub,
		carts:   carts,
		catalog: services.NewCatalogService(prods, pub),
		state:   state,
		orders:  services.NewOrderService(prods, orderRepo, state, pub),
		users:   services.NewUserService(repos.NewUserRepo(db), orderRepo),
	}
}
