package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// tsLayout keeps timestamps fixed-width so TEXT columns sort chronologically.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// OpenDB connects, bootstraps the schema and optionally seeds demo data.
// driver is "sqlite" or "postgres".
func OpenDB(driver, dsn string, seed bool) (*sqlx.DB, error) {
	var schema string
	switch driver {
	case "sqlite":
		schema = sqliteSchema
	case "postgres":
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one connection keeps ":memory:" databases coherent and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	if seed {
		if err := Seed(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return db, nil
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL DEFAULT 0 CHECK (price >= 0),
  offer_price NUMERIC NOT NULL DEFAULT 0 CHECK (offer_price >= 0),
  rating REAL NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
  category TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  featured INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_title      ON products(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_products_price      ON products(price);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total NUMERIC NOT NULL CHECK (total >= 0),
  status TEXT NOT NULL CHECK (status IN ('processing','shipped','delivered','cancelled')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- state_key is a session id, or "user:<id>" for bearer clients
CREATE TABLE IF NOT EXISTS cart_items(
  state_key  TEXT NOT NULL,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  position INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT,
  PRIMARY KEY (state_key, product_id)
);

CREATE TABLE IF NOT EXISTS wishlist_items(
  state_key  TEXT NOT NULL,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at TEXT,
  PRIMARY KEY (state_key, product_id)
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL DEFAULT 0 CHECK (price >= 0),
  offer_price NUMERIC NOT NULL DEFAULT 0 CHECK (offer_price >= 0),
  rating DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
  category TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  featured BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_title      ON products(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_products_price      ON products(price);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total NUMERIC NOT NULL CHECK (total >= 0),
  status TEXT NOT NULL CHECK (status IN ('processing','shipped','delivered','cancelled')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS cart_items(
  state_key  TEXT NOT NULL,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  position INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT,
  PRIMARY KEY (state_key, product_id)
);

CREATE TABLE IF NOT EXISTS wishlist_items(
  state_key  TEXT NOT NULL,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at TEXT,
  PRIMARY KEY (state_key, product_id)
);
`

type seedProduct struct {
	id, title, desc, category, image string
	price, offer                     string
	rating                           float64
	stock                            int
	featured                         bool
}

var demoProducts = []seedProduct{
	{"gbc-001", "Game Boy Color", "Handheld console, tested and cleaned", "consoles", "products/gbc-001/main.jpg", "129.99", "0", 4.5, 8, true},
	{"nes-001", "NES Console", "Classic 8-bit console", "consoles", "products/nes-001/main.jpg", "199.00", "179.00", 4.8, 5, true},
	{"snes-001", "Super Nintendo Console", "16-bit console with controller", "consoles", "products/snes-001/main.jpg", "199.00", "0", 4.7, 3, false},
	{"radio-001", "Philco 1939 Radio", "Vintage vacuum tube radio", "radios", "products/radio-001/main.jpg", "349.50", "0", 4.1, 2, false},
	{"radio-zenith-500", "Zenith Royal 500 Transistor Radio", "Pocket radio, works with 9V battery", "radios", "products/radio-zenith-500/main.jpg", "89.00", "75.00", 3.9, 0, false},
	{"walkman-001", "Sony Walkman WM-2", "Cassette player, new belts", "audio", "products/walkman-001/main.jpg", "149.00", "0", 4.6, 6, true},
}

// DemoProducts returns the demo catalog for backends seeded outside SQL.
func DemoProducts() []domain.Product {
	base := time.Now().UTC().Add(-time.Duration(len(demoProducts)) * time.Hour)
	out := make([]domain.Product, 0, len(demoProducts))
	for i, p := range demoProducts {
		ts := base.Add(time.Duration(i) * time.Hour)
		out = append(out, domain.Product{
			ID:          p.id,
			Title:       p.title,
			Description: p.desc,
			Price:       decimal.RequireFromString(p.price),
			OfferPrice:  decimal.RequireFromString(p.offer),
			Rating:      p.rating,
			Category:    p.category,
			Image:       p.image,
			Stock:       p.stock,
			Featured:    p.featured,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		})
	}
	return out
}

// Seed inserts demo products and users when they are missing. Safe to run on
// every startup.
func Seed(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n == 0 {
		applog.L().Info().Int("products", len(demoProducts)).Msg("seeding demo catalog")
		base := time.Now().UTC().Add(-time.Duration(len(demoProducts)) * time.Hour)
		for i, p := range demoProducts {
			ts := formatTS(base.Add(time.Duration(i) * time.Hour))
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO products(id,title,description,price,offer_price,rating,category,image,stock,featured,created_at,updated_at)
				VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
			`), p.id, p.title, p.desc, decimal.RequireFromString(p.price), decimal.RequireFromString(p.offer),
				p.rating, p.category, p.image, p.stock, p.featured, ts, ts); err != nil {
				return err
			}
		}
	}

	if err := seedUsers(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// seedUsers ensures the demo shoppers and one ADMIN exist (idempotent).
func seedUsers(ctx context.Context, tx *sqlx.Tx) error {
	type u struct {
		ID, Email, Name, Role string
	}
	users := []u{
		{"u-alice", "alice@storefront.test", "Alice", "USER"},
		{"u-bob", "bob@storefront.test", "Bob", "USER"},
		{"u-admin", "admin@storefront.test", "Admin", "ADMIN"},
	}

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := formatTS(time.Now())
	for _, x := range users {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users(id,email,name,password_hash,role,created_at,updated_at)
			VALUES(?,?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`), x.ID, x.Email, x.Name, string(hash), x.Role, now, now); err != nil {
			return err
		}
	}
	return nil
}
