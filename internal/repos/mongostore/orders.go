package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/query"
)

type orderItemDoc struct {
	ProductID string               `bson:"productId"`
	Title     string               `bson:"title"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	UserID    string               `bson:"userId"`
	Items     []orderItemDoc       `bson:"items"`
	Total     primitive.Decimal128 `bson:"total"`
	Status    string               `bson:"status"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func (d orderDoc) order() domain.Order {
	o := domain.Order{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Total:     fromDecimal128(d.Total),
		Status:    domain.OrderStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Items:     make([]domain.OrderItem, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     fromDecimal128(it.Price),
		})
	}
	return o
}

type OrderStore struct{ c *mongo.Collection }

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{c: db.Collection(ordersColl)}
}

func (s *OrderStore) Create(ctx context.Context, o *domain.Order) error {
	if o.Status == "" {
		o.Status = domain.StatusProcessing
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	d := orderDoc{
		ID:        primitive.NewObjectID(),
		UserID:    o.UserID,
		Total:     toDecimal128(o.Total),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Items:     make([]orderItemDoc, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		d.Items = append(d.Items, orderItemDoc{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     toDecimal128(it.Price),
		})
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.ID = d.ID.Hex()
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (domain.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return domain.Order{}, err
	}
	var d orderDoc
	err = s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return d.order(), nil
}

func (s *OrderStore) List(ctx context.Context, q query.Orders) ([]domain.Order, int, error) {
	filter := OrderFilter(q)
	var (
		docs  []orderDoc
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := s.c.Find(gctx, filter, options.Find().
			SetSort(SortDoc(q.Sort)).
			SetSkip(int64(q.Page.Offset())).
			SetLimit(int64(q.Page.Size)))
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
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, int(total), nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return domain.Order{}, err
	}
	var d orderDoc
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": string(status), "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %s: %w", id, err)
	}
	return d.order(), nil
}

func (s *OrderStore) CancelForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"userId": userID, "status": bson.M{"$in": bson.A{string(domain.StatusProcessing), string(domain.StatusShipped)}}},
		bson.M{"$set": bson.M{"status": string(domain.StatusCancelled), "updatedAt": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("cancel orders for %s: %w", userID, err)
	}
	return int(res.ModifiedCount), nil
}
