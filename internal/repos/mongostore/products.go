package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/query"
)

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	OfferPrice  primitive.Decimal128 `bson:"offerPrice"`
	Rating      float64              `bson:"rating"`
	Category    string               `bson:"category"`
	Image       string               `bson:"image"`
	Stock       int                  `bson:"stock"`
	Featured    bool                 `bson:"featured"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d productDoc) product() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Price:       fromDecimal128(d.Price),
		OfferPrice:  fromDecimal128(d.OfferPrice),
		Rating:      d.Rating,
		Category:    d.Category,
		Image:       d.Image,
		Stock:       d.Stock,
		Featured:    d.Featured,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type ProductStore struct{ c *mongo.Collection }

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{c: db.Collection(productsColl)}
}

func (s *ProductStore) List(ctx context.Context, q query.Products) ([]domain.Product, int, error) {
	filter := ProductFilter(q)
	var (
		docs  []productDoc
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := options.Find().
			SetSort(SortDoc(q.Sort)).
			SetSkip(int64(q.Page.Offset())).
			SetLimit(int64(q.Page.Size))
		cur, err := s.c.Find(gctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(gctx, &docs)
	})
	g.Go(func() error {
		n, err := s.c.CountDocuments(gctx, filter)
		total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out, int(total), nil
}

func (s *ProductStore) Get(ctx context.Context, id string) (domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return domain.Product{}, err
	}
	var d productDoc
	err = s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return d.product(), nil
}

func (s *ProductStore) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	d := productDoc{
		ID:          primitive.NewObjectID(),
		Title:       p.Title,
		Description: p.Description,
		Price:       toDecimal128(p.Price),
		OfferPrice:  toDecimal128(p.OfferPrice),
		Rating:      p.Rating,
		Category:    p.Category,
		Image:       p.Image,
		Stock:       p.Stock,
		Featured:    p.Featured,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = d.ID.Hex()
	return nil
}

func patchSet(p domain.ProductPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Price != nil {
		set["price"] = toDecimal128(*p.Price)
	}
	if p.OfferPrice != nil {
		set["offerPrice"] = toDecimal128(*p.OfferPrice)
	}
	if p.Rating != nil {
		set["rating"] = *p.Rating
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Image != nil {
		set["image"] = *p.Image
	}
	if p.Stock != nil {
		set["stock"] = *p.Stock
	}
	if p.Featured != nil {
		set["featured"] = *p.Featured
	}
	return set
}

func (s *ProductStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if patch.Empty() {
		return s.Get(ctx, id)
	}
	oid, err := objectID(id)
	if err != nil {
		return domain.Product{}, err
	}
	set := patchSet(patch)
	set["updatedAt"] = time.Now().UTC()

	var d productDoc
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return d.product(), nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return nil
	}
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

func (s *ProductStore) Categories(ctx context.Context) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "category", bson.M{"category": bson.M{"$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ProductStore) ReserveStock(ctx context.Context, id string, qty int) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": oid, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("reserve stock %s: %w", id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("reserve stock %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientStock
}
