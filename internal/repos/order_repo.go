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

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Total     decimal.Decimal `db:"total"`
	Status    string          `db:"status"`
	CreatedAt string          `db:"created_at"`
	UpdatedAt string          `db:"updated_at"`
}

type orderItemRow struct {
	OrderID   string          `db:"order_id"`
	ProductID string          `db:"product_id"`
	Title     string          `db:"title"`
	Qty       int             `db:"qty"`
	Price     decimal.Decimal `db:"price"`
}

func (r orderRow) order(items []orderItemRow) domain.Order {
	o := domain.Order{
		ID:        r.ID,
		UserID:    r.UserID,
		Total:     r.Total,
		Status:    domain.OrderStatus(r.Status),
		CreatedAt: parseTS(r.CreatedAt),
		UpdatedAt: parseTS(r.UpdatedAt),
		Items:     make([]domain.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Qty,
			Price:     it.Price,
		})
	}
	return o
}

const orderCols = `id, user_id, total, status, created_at, updated_at`

var orderSortCols = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"total":     "total",
	"status":    "status",
}

// Create inserts the header and its line items in one transaction.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = domain.StatusProcessing
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO orders(`+orderCols+`)
		VALUES(?,?,?,?,?,?)`),
		o.ID, o.UserID, o.Total, string(o.Status), formatTS(o.CreatedAt), formatTS(o.UpdatedAt)); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	for _, it := range o.Items {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO order_items(order_id, product_id, title, qty, price)
			VALUES(?,?,?,?,?)`),
			o.ID, it.ProductID, it.Title, it.Quantity, it.Price); err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return tx.Commit()
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+orderCols+` FROM orders WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(`
		SELECT order_id, product_id, title, qty, price
		FROM order_items
		WHERE order_id = ?
		ORDER BY title, product_id`), id); err != nil {
		return domain.Order{}, fmt.Errorf("get order items %s: %w", id, err)
	}
	return row.order(items), nil
}

func (r *OrderRepo) List(ctx context.Context, q query.Orders) ([]domain.Order, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	cond := strings.Join(where, " AND ")
	pageArgs := append(append([]any{}, args...), q.Page.Size, q.Page.Offset())

	var (
		rows  []orderRow
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.SelectContext(gctx, &rows, r.db.Rebind(`
			SELECT `+orderCols+`
			FROM orders
			WHERE `+cond+`
			ORDER BY `+orderBy(q.Sort, orderSortCols)+`
			LIMIT ? OFFSET ?`), pageArgs...)
	})
	g.Go(func() error {
		return r.db.GetContext(gctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM orders WHERE `+cond), args...)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	byOrder, err := r.itemsFor(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.order(byOrder[row.ID]))
	}
	return out, total, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, rows []orderRow) (map[string][]orderItemRow, error) {
	byOrder := map[string][]orderItemRow{}
	if len(rows) == 0 {
		return byOrder, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	q, args, err := sqlx.In(`
		SELECT order_id, product_id, title, qty, price
		FROM order_items
		WHERE order_id IN (?)
		ORDER BY title, product_id`, ids)
	if err != nil {
		return nil, err
	}
	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), formatTS(time.Now()), id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

// CancelForUser cancels orders that have not been delivered. Rows are kept
// for audit.
func (r *OrderRepo) CancelForUser(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE orders SET status = ?, updated_at = ?
		WHERE user_id = ? AND status IN (?, ?)`),
		string(domain.StatusCancelled), formatTS(time.Now()), userID,
		string(domain.StatusProcessing), string(domain.StatusShipped))
	if err != nil {
		return 0, fmt.Errorf("cancel orders for %s: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
