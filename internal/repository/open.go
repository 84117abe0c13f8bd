// Package repository selects the store implementation named by DB_DRIVER.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"planwise/internal/config"
	planningRepo "planwise/internal/domain/repositories/planning"
	"planwise/internal/repository/postgres"
	postgresPlanning "planwise/internal/repository/postgres/planning"
	"planwise/internal/repository/sqlite"
)

// Open connects the configured database, applies the schema and wires every
// planning repository. The returned func closes the connection.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*planningRepo.Store, func(), error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("database connected", "driver", "sqlite", "path", cfg.SQLitePath)
		return sqlite.NewStore(db, logger), func() { db.Close() }, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool, cfg.TablePrefix, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database connected",
			"driver", "postgres",
			"max_conns", pool.Config().MaxConns,
		)
		store := postgresPlanning.NewStore(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}
}
