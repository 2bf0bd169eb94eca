package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pressly/goose/v3"
)

// Postgres wraps a PostgreSQL connection opened through pgx.
type Postgres struct {
	*sql.DB
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying postgres connection: %w", err)
	}
	return &Postgres{DB: sqlDB}, nil
}

// Migrate applies the goose migrations at the root of fsys.
func (p *Postgres) Migrate(ctx context.Context, fsys fs.FS) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, p.DB, fsys)
	if err != nil {
		return fmt.Errorf("preparing postgres migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying postgres migrations: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to confirm the store is reachable.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return ping(ctx, p.DB)
}
