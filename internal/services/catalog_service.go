package services

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/events"
	applog "storefront/internal/log"
	"storefront/internal/query"
)

type Listing struct {
	Products   []domain.Product `json:"products"`
	Pagination query.Pagination `json:"pagination"`
}

type CatalogService struct {
	Products ProductStore
	Events   events.Publisher
}

func NewCatalogService(products ProductStore, pub events.Publisher) *CatalogService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &CatalogService{Products: products, Events: pub}
}

func (s *CatalogService) List(ctx context.Context, q query.Products) (Listing, error) {
	items, total, err := s.Products.List(ctx, q)
	if err != nil {
		return Listing{}, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	return Listing{Products: items, Pagination: query.NewPagination(q.Page, total)}, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.Products.Get(ctx, id)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.Products.Categories(ctx)
}

// Availability buckets the product's stock into IN_STOCK / LOW_STOCK /
// OUT_OF_STOCK.
func (s *CatalogService) Availability(ctx context.Context, id string) (domain.Availability, error) {
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.AvailabilityOf(p.Stock), nil
}

// Create accepts a full or partial payload; unset fields keep zero values.
func (s *CatalogService) Create(ctx context.Context, patch domain.ProductPatch) (domain.Product, error) {
	if err := patch.Validate(); err != nil {
		return domain.Product{}, err
	}
	var p domain.Product
	patch.Apply(&p)
	if err := s.Products.Create(ctx, &p); err != nil {
		return domain.Product{}, err
	}
	s.publish(ctx, events.New(events.ProductCreated, p.ID, p))
	return p, nil
}

// Update merges the set fields into the stored product.
func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if err := patch.Validate(); err != nil {
		return domain.Product{}, err
	}
	p, err := s.Products.Update(ctx, id, patch)
	if err != nil {
		return domain.Product{}, err
	}
	s.publish(ctx, events.New(events.ProductUpdated, p.ID, p))
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.ProductDeleted, id, nil))
	return nil
}

func (s *CatalogService) publish(ctx context.Context, e events.Event) {
	publish(ctx, s.Events, e)
}

// publish never fails the caller; broker trouble is only logged.
func publish(ctx context.Context, pub events.Publisher, e events.Event) {
	if err := pub.Publish(ctx, e); err != nil {
		applog.L().Warn().Err(err).Str("event", e.Key()).Msg("event publish failed")
	}
}
