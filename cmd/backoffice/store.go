package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/backoffice-core/internal/api"
	"github.com/nerrad567/backoffice-core/internal/auth"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/config"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/database"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/logging"
	"github.com/nerrad567/backoffice-core/migrations"
)

// userStore is an opened, migrated user database.
type userStore struct {
	repo   auth.UserRepository
	health api.HealthChecker
	close  func() error
}

// openUserStore opens the configured backend and applies its migrations.
func openUserStore(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*userStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := database.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := pg.Migrate(ctx, migrations.Postgres); err != nil {
			pg.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "driver", cfg.Driver)
		return &userStore{
			repo:   auth.NewPostgresUserRepository(pg.DB),
			health: pg,
			close:  pg.Close,
		}, nil

	default:
		db, err := database.Open(database.Config{
			Path:        cfg.Path,
			WALMode:     cfg.WALMode,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx, migrations.SQLite); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "driver", config.DriverSQLite, "path", cfg.Path)
		return &userStore{
			repo:   auth.NewUserRepository(db.DB),
			health: db,
			close:  db.Close,
		}, nil
	}
}

// app holds what every subcommand touching users needs.
type app struct {
	cfg   *config.Config
	log   *logging.Logger
	store *userStore
	dir   *auth.Directory
}

// openApp loads config, opens the store and builds the user directory.
func openApp(ctx context.Context, configFlag string) (*app, error) {
	path := resolveConfigPath(configFlag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path, "environment", cfg.Environment)

	store, err := openUserStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	creds := auth.NewCredentialStore(cfg.Security.Password.MaxConcurrentHashes)
	dir, err := auth.NewDirectory(store.repo, creds, log.Logger)
	if err != nil {
		store.close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	return &app{cfg: cfg, log: log, store: store, dir: dir}, nil
}

// Close releases the database.
func (a *app) Close() error {
	a.log.Info("closing database")
	return a.store.close()
}
