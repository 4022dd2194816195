package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/api"
	"github.com/soaringjerry/kavili/internal/config"
	"github.com/soaringjerry/kavili/internal/db"
	"github.com/soaringjerry/kavili/internal/db/postgres"
)

// openStore opens the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (api.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on exit")
		return api.NewMemoryStore(), nil
	case "sqlite":
		return openSQLite(ctx, cfg.Storage.SQLitePath, cfg.Storage.MigrationsDir, logger)
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresURL, postgres.PoolConfig{
			MaxConns:        cfg.Storage.MaxConnections,
			MaxConnLifetime: cfg.Storage.MaxConnLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool, cfg.Storage.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("postgres store ready")
		return postgres.NewStore(pool, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openSQLite(ctx context.Context, path, migrationsDir string, logger *zap.Logger) (*db.SQLiteStore, error) {
	store, err := db.OpenSQLite(ctx, path, migrationsDir, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("sqlite store ready", zap.String("path", path))
	return store, nil
}

func closeStore(store api.Store, logger *zap.Logger) {
	if err := store.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}
