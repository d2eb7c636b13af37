package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/store"
)

type wishItemRow struct {
	ProductID string          `db:"product_id"`
	Title     string          `db:"title"`
	Image     string          `db:"image"`
	Price     decimal.Decimal `db:"price"`
}

func (r *StateRepo) LoadWishlist(ctx context.Context, key string) ([]store.WishItem, error) {
	var rows []wishItemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT product_id, title, image, price
		FROM wishlist_items
		WHERE state_key = ?
		ORDER BY position`), key); err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	out := make([]store.WishItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.WishItem(row))
	}
	return out, nil
}

func (r *StateRepo) SaveWishlist(ctx context.Context, key string, items []store.WishItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wishlist_items WHERE state_key = ?`), key); err != nil {
		return fmt.Errorf("save wishlist: %w", err)
	}
	now := formatTS(time.Now())
	for i, it := range items {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO wishlist_items(state_key, product_id, title, image, price, position, created_at)
			VALUES(?,?,?,?,?,?,?)
			ON CONFLICT(state_key, product_id) DO NOTHING`),
			key, it.ProductID, it.Title, it.Image, it.Price, i, now); err != nil {
			return fmt.Errorf("save wishlist line %s: %w", it.ProductID, err)
		}
	}
	return tx.Commit()
}
