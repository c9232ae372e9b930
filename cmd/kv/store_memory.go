package kv

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStore is a dev-only fallback when no persistent backend is configured.
// Values are copied on the way in and out so callers cannot alias stored bytes.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get returns a copy of the value under key.
func (s *MemoryStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if key.IsZero() {
		return nil, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key.s]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Put overwrites the value under key.
func (s *MemoryStore) Put(ctx context.Context, key Key, value []byte) error {
	if key.IsZero() {
		return ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key.s] = bytes.Clone(value)
	s.mu.Unlock()
	return nil
}

// PutIfAbsent stores value only if key is unset.
func (s *MemoryStore) PutIfAbsent(ctx context.Context, key Key, value []byte) (bool, error) {
	if key.IsZero() {
		return false, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key.s]; ok {
		return false, nil
	}
	s.values[key.s] = bytes.Clone(value)
	return true, nil
}

// Ping always succeeds unless ctx is done.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }
