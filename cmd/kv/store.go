package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// ErrInvalidKey is returned when a zero Key reaches a store.
var ErrInvalidKey = errors.New("kv: invalid key")

// Store is the contract shared by all backends.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Put overwrites the value under key (last write wins).
	Put(ctx context.Context, key Key, value []byte) error
	// PutIfAbsent writes value only when key is unset and reports whether it did.
	PutIfAbsent(ctx context.Context, key Key, value []byte) (bool, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases resources owned by the store.
	Close() error
}
