package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskoverflow-api/internal/config"
	"github.com/phrazzld/taskoverflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskoverflow-api/internal/redact"
)

// setupAppDatabase opens the Postgres connection and, when configured,
// applies pending migrations.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("Connecting to database", "url", redact.URL(cfg.Database.URL))

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, postgres.MigrateUp, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	logger.Info("Database connection established")
	return db, nil
}

// handleMigrations runs a single migration command against the configured
// database and returns.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations require database.driver=postgres, got %q", cfg.Database.Driver)
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Error closing database connection", "error", err)
		}
	}()

	logger.Info("Executing migrations", "command", command, "url", redact.URL(cfg.Database.URL))
	return postgres.Migrate(ctx, db, command, logger)
}
