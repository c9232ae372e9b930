package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; Close does not close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool. It does not touch the schema; see MigratePostgres.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("kv: postgres: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// MigratePostgres applies the embedded schema through a database/sql view of pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if pool == nil {
		return errors.New("kv: postgres: nil pool")
	}
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	return Migrate(ctx, db, goose.DialectPostgres, log)
}

// Get returns the value under key or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if key.IsZero() {
		return nil, ErrInvalidKey
	}

	var v []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key.s).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: postgres: get: %w", err)
	}
	return v, nil
}

// Put upserts the value under key.
func (s *PostgresStore) Put(ctx context.Context, key Key, value []byte) error {
	if key.IsZero() {
		return ErrInvalidKey
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key.s, value,
	)
	if err != nil {
		return fmt.Errorf("kv: postgres: put: %w", err)
	}
	return nil
}

// PutIfAbsent inserts the value only if key is unset.
func (s *PostgresStore) PutIfAbsent(ctx context.Context, key Key, value []byte) (bool, error) {
	if key.IsZero() {
		return false, ErrInvalidKey
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`,
		key.s, value,
	)
	if err != nil {
		return false, fmt.Errorf("kv: postgres: put_if_absent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Ping acquires and releases a pooled connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error { return nil }
