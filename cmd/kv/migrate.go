package kv

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded kv_entries migrations for dialect to db.
// Supported dialects are goose.DialectPostgres and goose.DialectSQLite3.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, log *slog.Logger) error {
	if db == nil {
		return fmt.Errorf("kv: migrate: nil db")
	}
	if log == nil {
		log = slog.Default()
	}

	var dir string
	switch dialect {
	case goose.DialectPostgres:
		dir = "migrations/postgres"
	case goose.DialectSQLite3:
		dir = "migrations/sqlite"
	default:
		return fmt.Errorf("kv: migrate: unsupported dialect %q", dialect)
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("kv: migrate: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("kv: migrate: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("kv: migrate: %w", err)
	}

	log.Info("kv.migrate.done", "dialect", string(dialect), "applied", len(results))
	return nil
}
