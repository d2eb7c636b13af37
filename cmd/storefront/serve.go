package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/query"
	"storefront/internal/repos"
	"storefront/internal/repos/mongostore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	out, closeLog := logOutput(cfg)
	defer closeLog()
	applog.Init(cfg.LogLevel, out)

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, cfg.SeedDemo)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := buildStores(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStores()

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer k.Close()
		pub = k
		applog.L().Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	}

	deps := handlers.NewDeps(stores, handlers.DepsConfig{
		Tokens:       auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Events:       pub,
		MediaDir:     cfg.MediaDir,
		CookieSecure: cfg.CookieSecure,
	})
	app := handlers.NewApp(deps, handlers.Options{
		RateLimit:    cfg.RateLimit,
		CSRF:         cfg.CSRF,
		CookieSecure: cfg.CookieSecure,
		AccessLog:    out,
	})

	errc := make(chan error, 1)
	go func() {
		applog.L().Info().Str("port", cfg.Port).Str("db", cfg.DBDriver).Str("catalog", cfg.CatalogBackend).Msg("listening")
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	applog.L().Info().Msg("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// logOutput tees to LOG_FILE when it can be opened.
func logOutput(cfg config.Config) (io.Writer, func()) {
	if cfg.LogFile == "" {
		return os.Stdout, func() {}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		applog.L().Warn().Err(err).Str("file", cfg.LogFile).Msg("could not open log file")
		return os.Stdout, func() {}
	}
	return io.MultiWriter(os.Stdout, f), func() { _ = f.Close() }
}

// buildStores picks the catalog backend and wraps products in the Redis
// cache when REDIS_ADDR is set. Users and shopper state always live in SQL.
func buildStores(ctx context.Context, cfg config.Config, db *sqlx.DB) (handlers.Stores, func(), error) {
	st := handlers.Stores{
		Products: repos.NewProductRepo(db),
		Orders:   repos.NewOrderRepo(db),
		Users:    repos.NewUserRepo(db),
		State:    repos.NewStateRepo(db),
	}
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.CatalogBackend {
	case "", "sql":
	case "mongo":
		client, mdb, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return st, closeAll, fmt.Errorf("mongo: %w", err)
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		if err := mongostore.EnsureIndexes(ctx, mdb); err != nil {
			return st, closeAll, fmt.Errorf("mongo indexes: %w", err)
		}
		products := mongostore.NewProductStore(mdb)
		if cfg.SeedDemo {
			if err := seedMongo(ctx, products); err != nil {
				return st, closeAll, fmt.Errorf("mongo seed: %w", err)
			}
		}
		st.Products = products
		st.Orders = mongostore.NewOrderStore(mdb)
	default:
		return st, closeAll, fmt.Errorf("unsupported CATALOG_BACKEND %q", cfg.CatalogBackend)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, func() { _ = rdb.Close() })
		st.Products = cache.NewProducts(st.Products, rdb, cfg.CacheTTL)
	}
	return st, closeAll, nil
}

func seedMongo(ctx context.Context, products *mongostore.ProductStore) error {
	_, total, err := products.List(ctx, query.Products{Sort: query.DefaultSort, Page: query.Page{Number: 1, Size: 1}})
	if err != nil || total > 0 {
		return err
	}
	demo := repos.DemoProducts()
	applog.L().Info().Int("products", len(demo)).Msg("seeding demo catalog in mongo")
	for i := range demo {
		if err := products.Create(ctx, &demo[i]); err != nil {
			return err
		}
	}
	return nil
}
