package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/api"
	"github.com/soaringjerry/kavili/internal/db"
	"github.com/soaringjerry/kavili/internal/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations, optionally copying data from a SQLite file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		// openStore applies pending migrations.
		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore(store, logger)

		from, _ := cmd.Flags().GetString("from-sqlite")
		if from == "" {
			logger.Info("schema up to date", zap.String("driver", cfg.Storage.Driver))
			return nil
		}
		if cfg.Storage.Driver == "sqlite" && from == cfg.Storage.SQLitePath {
			return errors.New("--from-sqlite points at the configured database")
		}
		return CopyFromSQLite(cmd.Context(), from, cfg.Storage.MigrationsDir, store, logger)
	},
}

func init() {
	migrateCmd.Flags().String("from-sqlite", "", "Copy all data from this SQLite file into the configured store")
}

// CopyFromSQLite copies a SQLite database into dst, e.g. when moving to
// Postgres. It does nothing when dst already holds questions or entries.
func CopyFromSQLite(ctx context.Context, sqlitePath, migrationsDir string, dst api.Store, logger *zap.Logger) error {
	if _, err := os.Stat(sqlitePath); err != nil {
		return fmt.Errorf("check sqlite file: %w", err)
	}
	n, err := dst.CountQuestions(ctx)
	if err != nil {
		return err
	}
	existing, err := dst.ListEntries(ctx, time.Time{})
	if err != nil {
		return err
	}
	if n > 0 || len(existing) > 0 {
		logger.Info("target store already has data, skipping copy")
		return nil
	}

	src, err := db.OpenSQLite(ctx, sqlitePath, migrationsDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("failed to close source sqlite db", zap.Error(cerr))
		}
	}()

	logger.Info("copying data from sqlite", zap.String("path", sqlitePath))
	if err := copyStore(ctx, src, dst); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	logger.Info("data copy completed")
	return nil
}

func copyStore(ctx context.Context, src *db.SQLiteStore, dst api.Store) error {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		found, err := dst.FindUserByEmail(ctx, u.Email)
		if err != nil {
			return err
		}
		if found != nil {
			continue
		}
		if err := dst.AddUser(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
	}

	questions, err := src.ListQuestions(ctx)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if err := dst.InsertQuestion(ctx, q); err != nil {
			return fmt.Errorf("question %s: %w", q.ID, err)
		}
		for _, o := range q.Options {
			if err := dst.InsertOption(ctx, o); err != nil {
				return fmt.Errorf("option %s: %w", o.ID, err)
			}
		}
	}

	personalities, err := src.ListPersonalities(ctx)
	if err != nil {
		return err
	}
	for _, p := range personalities {
		if err := dst.UpsertPersonality(ctx, p); err != nil {
			return fmt.Errorf("personality %s: %w", p.Name, err)
		}
	}

	raw, err := src.GetSetting(ctx, services.AppSettingsKey)
	if err != nil {
		return err
	}
	if raw != nil {
		if err := dst.PutSetting(ctx, services.AppSettingsKey, raw); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
	}

	entries, err := src.ListEntries(ctx, time.Time{})
	if err != nil {
		return err
	}
	// Oldest first so the target keeps the same insertion order.
	for i := len(entries) - 1; i >= 0; i-- {
		if err := dst.InsertEntry(ctx, entries[i]); err != nil {
			return fmt.Errorf("entry %s: %w", entries[i].ID, err)
		}
	}

	audit, err := src.ListAudit(ctx, 0)
	if err != nil {
		return err
	}
	for i := len(audit) - 1; i >= 0; i-- {
		dst.AddAudit(ctx, audit[i])
	}
	return nil
}
