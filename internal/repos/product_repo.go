package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/query"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, title, description, price, offer_price, rating, category, image, stock, featured, created_at, updated_at`

type productRow struct {
	ID          string          `db:"id"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	OfferPrice  decimal.Decimal `db:"offer_price"`
	Rating      float64         `db:"rating"`
	Category    string          `db:"category"`
	Image       string          `db:"image"`
	Stock       int             `db:"stock"`
	Featured    bool            `db:"featured"`
	CreatedAt   string          `db:"created_at"`
	UpdatedAt   string          `db:"updated_at"`
}

func (r productRow) product() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		OfferPrice:  r.OfferPrice,
		Rating:      r.Rating,
		Category:    r.Category,
		Image:       r.Image,
		Stock:       r.Stock,
		Featured:    r.Featured,
		CreatedAt:   parseTS(r.CreatedAt),
		UpdatedAt:   parseTS(r.UpdatedAt),
	}
}

// productSortCols maps API sort names onto indexed columns.
var productSortCols = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"title":      "title",
	"price":      "price",
	"offerPrice": "offer_price",
	"rating":     "rating",
	"stock":      "stock",
	"category":   "category",
}

func orderBy(s query.Sort, cols map[string]string) string {
	col, ok := cols[s.Field]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return col + " " + dir + ", id " + dir
}

// likeEscaper makes user input match literally inside LIKE ... ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func productWhere(q query.Products) (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	if q.Search != "" {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q.Search))+"%")
	}
	if q.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, q.Category)
	}
	if q.MinPrice != nil {
		where = append(where, `price >= ?`)
		args = append(args, q.MinPrice.InexactFloat64())
	}
	if q.MaxPrice != nil {
		where = append(where, `price <= ?`)
		args = append(args, q.MaxPrice.InexactFloat64())
	}
	return strings.Join(where, " AND "), args
}

// List runs the page query and the count concurrently over the same filter.
func (r *ProductRepo) List(ctx context.Context, q query.Products) ([]domain.Product, int, error) {
	where, args := productWhere(q)
	pageArgs := append(append([]any{}, args...), q.Page.Size, q.Page.Offset())

	var (
		rows  []productRow
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.SelectContext(gctx, &rows, r.db.Rebind(`
			SELECT `+productCols+`
			FROM products
			WHERE `+where+`
			ORDER BY `+orderBy(q.Sort, productSortCols)+`
			LIMIT ? OFFSET ?`), pageArgs...)
	})
	g.Go(func() error {
		return r.db.GetContext(gctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM products WHERE `+where), args...)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.product())
	}
	return out, total, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+productCols+` FROM products WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return row.product(), nil
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO products(`+productCols+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`),
		p.ID, p.Title, p.Description, p.Price, p.OfferPrice, p.Rating, p.Category, p.Image,
		p.Stock, p.Featured, formatTS(p.CreatedAt), formatTS(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update writes only the columns the patch sets, then re-reads the row.
func (r *ProductRepo) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.OfferPrice != nil {
		set("offer_price", *patch.OfferPrice)
	}
	if patch.Rating != nil {
		set("rating", *patch.Rating)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Image != nil {
		set("image", *patch.Image)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.Featured != nil {
		set("featured", *patch.Featured)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	set("updated_at", formatTS(time.Now()))
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := r.db.SelectContext(ctx, &out, `
		SELECT DISTINCT category FROM products
		WHERE category <> ''
		ORDER BY category`); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return out, nil
}

// ReserveStock is a conditional decrement; it never drives stock negative.
func (r *ProductRepo) ReserveStock(ctx context.Context, id string, qty int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE products SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?`), qty, formatTS(time.Now()), id, qty)
	if err != nil {
		return fmt.Errorf("reserve stock %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) FROM products WHERE id = ?`), id); err != nil {
		return fmt.Errorf("reserve stock %s: %w", id, err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientStock
}
