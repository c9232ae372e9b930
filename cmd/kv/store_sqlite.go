package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLiteStore persists entries in a single SQLite file.
//
// The store owns its *sql.DB. Writes are serialized through a single
// connection, which keeps SQLITE_BUSY out of the request path.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteOption configures OpenSQLite.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	migrate     bool
	busyTimeout time.Duration
	log         *slog.Logger
}

// WithSQLiteMigrations controls whether OpenSQLite applies the embedded schema (default true).
func WithSQLiteMigrations(enabled bool) SQLiteOption {
	return func(o *sqliteOptions) { o.migrate = enabled }
}

// WithSQLiteBusyTimeout sets the busy_timeout pragma (default 5s).
func WithSQLiteBusyTimeout(d time.Duration) SQLiteOption {
	return func(o *sqliteOptions) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithSQLiteLogger sets the logger used for migration events.
func WithSQLiteLogger(log *slog.Logger) SQLiteOption {
	return func(o *sqliteOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// OpenSQLite opens (and creates if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("kv: sqlite: empty path")
	}

	o := sqliteOptions{migrate: true, busyTimeout: 5 * time.Second, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("kv: sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: sqlite: ping: %w", err)
	}

	if o.migrate {
		if err := Migrate(ctx, db, goose.DialectSQLite3, o.log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

// Get returns the value under key or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if key.IsZero() {
		return nil, ErrInvalidKey
	}

	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key.s).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: sqlite: get: %w", err)
	}
	return v, nil
}

// Put upserts the value under key.
func (s *SQLiteStore) Put(ctx context.Context, key Key, value []byte) error {
	if key.IsZero() {
		return ErrInvalidKey
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key.s, value, now, now,
	)
	if err != nil {
		return fmt.Errorf("kv: sqlite: put: %w", err)
	}
	return nil
}

// PutIfAbsent inserts the value only if key is unset.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, key Key, value []byte) (bool, error) {
	if key.IsZero() {
		return false, ErrInvalidKey
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO NOTHING`,
		key.s, value, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("kv: sqlite: put_if_absent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv: sqlite: put_if_absent: %w", err)
	}
	return n == 1, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
