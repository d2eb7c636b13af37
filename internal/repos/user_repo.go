package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
	"storefront/internal/store"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) one(ctx context.Context, q string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(q), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`, email)
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, `SELECT id,email,name,password_hash,role FROM users WHERE id=?`, id)
}

// List returns every account, admins first.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.SelectContext(ctx, &out, `
		SELECT id,email,name,password_hash,role FROM users
		ORDER BY CASE role WHEN 'ADMIN' THEN 0 ELSE 1 END, LOWER(email)`)
	return out, err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	now := formatTS(time.Now())
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO sessions(id,user_id,created_at,last_seen)
		VALUES(?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=excluded.last_seen`),
		sid, userID, now, now)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	return r.one(ctx, `
		SELECT u.id,u.email,u.name,u.password_hash,u.role
		FROM sessions s
		JOIN users u ON u.id=s.user_id
		WHERE s.id=?`, sid)
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE sessions SET user_id=NULL,last_seen=? WHERE id=?`),
		formatTS(time.Now()), sid)
	return err
}

// DeleteCascade removes the user with their sessions, carts and wishlists.
// Orders are cancelled by the caller beforehand and kept for audit.
func (r *UserRepo) DeleteCascade(ctx context.Context, userID string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var sessionIDs []string
	if err := tx.SelectContext(ctx, &sessionIDs, tx.Rebind(`SELECT id FROM sessions WHERE user_id=?`), userID); err != nil {
		return err
	}
	keys := append(sessionIDs, store.UserKey(userID))

	for _, table := range []string{"cart_items", "wishlist_items"} {
		q, args, err := sqlx.In(`DELETE FROM `+table+` WHERE state_key IN (?)`, keys)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sessions WHERE user_id=?`), userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id=?`), userID); err != nil {
		return err
	}
	return tx.Commit()
}
