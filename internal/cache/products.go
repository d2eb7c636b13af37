// Package cache fronts the product store with a redis read-through cache for
// single-product lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/query"
	"storefront/internal/services"
)

// KV is the subset of *redis.Client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Products caches Get by id. Writes go to the store and drop the cached
// entry. Any redis failure is logged and the store answers instead.
type Products struct {
	next services.ProductStore
	kv   KV
	ttl  time.Duration
}

var _ services.ProductStore = (*Products)(nil)

func NewProducts(next services.ProductStore, kv KV, ttl time.Duration) *Products {
	return &Products{next: next, kv: kv, ttl: ttl}
}

func Key(id string) string { return "product:" + id }

func (p *Products) Get(ctx context.Context, id string) (domain.Product, error) {
	raw, err := p.kv.Get(ctx, Key(id)).Bytes()
	switch {
	case err == nil:
		var prod domain.Product
		if jerr := json.Unmarshal(raw, &prod); jerr == nil {
			return prod, nil
		}
		applog.L().Warn().Str("key", Key(id)).Msg("cache entry undecodable, refetching")
	case !errors.Is(err, redis.Nil):
		applog.L().Warn().Err(err).Str("key", Key(id)).Msg("cache get failed")
	}

	prod, err := p.next.Get(ctx, id)
	if err != nil {
		return prod, err
	}
	if body, jerr := json.Marshal(prod); jerr == nil {
		if serr := p.kv.Set(ctx, Key(id), body, p.ttl).Err(); serr != nil {
			applog.L().Warn().Err(serr).Str("key", Key(id)).Msg("cache set failed")
		}
	}
	return prod, nil
}

func (p *Products) evict(ctx context.Context, id string) {
	if err := p.kv.Del(ctx, Key(id)).Err(); err != nil {
		applog.L().Warn().Err(err).Str("key", Key(id)).Msg("cache evict failed")
	}
}

func (p *Products) List(ctx context.Context, q query.Products) ([]domain.Product, int, error) {
	return p.next.List(ctx, q)
}

func (p *Products) Create(ctx context.Context, prod *domain.Product) error {
	return p.next.Create(ctx, prod)
}

func (p *Products) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	prod, err := p.next.Update(ctx, id, patch)
	p.evict(ctx, id)
	return prod, err
}

func (p *Products) Delete(ctx context.Context, id string) error {
	err := p.next.Delete(ctx, id)
	p.evict(ctx, id)
	return err
}

func (p *Products) Categories(ctx context.Context) ([]string, error) {
	return p.next.Categories(ctx)
}

func (p *Products) ReserveStock(ctx context.Context, id string, qty int) error {
	err := p.next.ReserveStock(ctx, id, qty)
	if err == nil {
		p.evict(ctx, id)
	}
	return err
}
