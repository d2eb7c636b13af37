package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/repos/mongostore"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema (and Mongo indexes) then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		applog.Init(cfg.LogLevel, os.Stdout)

		db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, migrateSeed)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		if cfg.CatalogBackend == "mongo" {
			client, mdb, err := mongostore.Connect(cmd.Context(), cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return fmt.Errorf("mongo: %w", err)
			}
			defer func() { _ = client.Disconnect(cmd.Context()) }()
			if err := mongostore.EnsureIndexes(cmd.Context(), mdb); err != nil {
				return fmt.Errorf("mongo indexes: %w", err)
			}
			if migrateSeed {
				if err := seedMongo(cmd.Context(), mongostore.NewProductStore(mdb)); err != nil {
					return fmt.Errorf("mongo seed: %w", err)
				}
			}
		}
		applog.L().Info().Str("db", cfg.DBDriver).Bool("seed", migrateSeed).Msg("schema up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "insert the demo catalog and accounts")
}
