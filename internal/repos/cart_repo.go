package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/store"
)

// StateRepo persists cart and wishlist lines keyed by session id (or
// store.UserKey for bearer clients). Lines snapshot title and price and do
// not reference products.
type StateRepo struct{ db *sqlx.DB }

func NewStateRepo(db *sqlx.DB) *StateRepo { return &StateRepo{db: db} }

type cartItemRow struct {
	ProductID string          `db:"product_id"`
	Title     string          `db:"title"`
	Image     string          `db:"image"`
	Price     decimal.Decimal `db:"price"`
	Qty       int             `db:"qty"`
}

func (r *StateRepo) LoadCart(ctx context.Context, key string) ([]store.CartItem, error) {
	var rows []cartItemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT product_id, title, image, price, qty
		FROM cart_items
		WHERE state_key = ?
		ORDER BY position`), key); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	out := make([]store.CartItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.CartItem(row))
	}
	return out, nil
}

// SaveCart replaces the stored lines with items, preserving their order.
func (r *StateRepo) SaveCart(ctx context.Context, key string, items []store.CartItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cart_items WHERE state_key = ?`), key); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	now := formatTS(time.Now())
	for i, it := range items {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO cart_items(state_key, product_id, title, image, price, qty, position, updated_at)
			VALUES(?,?,?,?,?,?,?,?)`),
			key, it.ProductID, it.Title, it.Image, it.Price, it.Qty, i, now); err != nil {
			return fmt.Errorf("save cart line %s: %w", it.ProductID, err)
		}
	}
	return tx.Commit()
}
