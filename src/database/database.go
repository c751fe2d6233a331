// Package database opens the Postgres pool and applies schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/livefire2015/ez-rent/migrations"
	"github.com/livefire2015/ez-rent/src/config"
	"github.com/pressly/goose/v3"
)

// ErrDSNRequired is returned when no connection string is configured
var ErrDSNRequired = errors.New("database dsn is required")

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNRequired
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Direction selects a migration command
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

// Migrate runs the embedded goose migrations in the given direction
func Migrate(ctx context.Context, db *sql.DB, dir Direction) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch dir {
	case Up:
		err = goose.UpContext(ctx, db, ".")
	case Down:
		err = goose.DownContext(ctx, db, ".")
	case Status:
		err = goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations %s: %w", dir, err)
	}
	return nil
}
