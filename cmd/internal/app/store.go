package app

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
)

// storeHandle owns the kv backend and anything it was built on.
type storeHandle struct {
	kv         kv.Store
	pool       *pgxpool.Pool
	driver     string
	persistent bool
}

// newStore opens the backend selected by cfg.StoreDriver.
func newStore(ctx context.Context, cfg Config, log Logger) (*storeHandle, error) {
	const op = "app.newStore"

	switch cfg.StoreDriver {
	case DriverSQLite:
		st, err := kv.OpenSQLite(ctx, cfg.SQLitePath,
			kv.WithSQLiteMigrations(cfg.MigrateOnStart),
			kv.WithSQLiteBusyTimeout(cfg.SQLiteBusyTimeout),
			kv.WithSQLiteLogger(log),
		)
		if err != nil {
			return nil, fault.Store(op, "open sqlite store", err)
		}
		log.Info("store.enabled", "driver", DriverSQLite, "path", cfg.SQLitePath)
		return &storeHandle{kv: st, driver: DriverSQLite, persistent: true}, nil

	case DriverPostgres:
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fault.Store(op, "connect postgres", err)
		}
		if cfg.MigrateOnStart {
			if err := kv.MigratePostgres(ctx, pool, log); err != nil {
				pool.Close()
				return nil, fault.Store(op, "migrate postgres", err)
			}
		}
		// The pool is owned here; PostgresStore.Close is a no-op.
		st, err := kv.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, fault.Store(op, "postgres store", err)
		}
		log.Info("store.enabled", "driver", DriverPostgres)
		return &storeHandle{kv: st, pool: pool, driver: DriverPostgres, persistent: true}, nil

	default:
		log.Info("store.enabled", "driver", DriverMemory)
		return &storeHandle{kv: kv.NewMemoryStore(), driver: DriverMemory}, nil
	}
}

// Ping reports whether the backend answers within timeout.
func (s *storeHandle) Ping(parent context.Context, timeout time.Duration) error {
	if s == nil || s.kv == nil {
		return errors.New("store not configured")
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return s.kv.Ping(ctx)
}

// Close releases the backend, then the pool.
func (s *storeHandle) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.kv != nil {
		err = s.kv.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
