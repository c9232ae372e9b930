package identity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
	"tabula/cmd/security/password"
)

type failingKV struct {
	kv.Store
	err error
}

func (f failingKV) Get(context.Context, kv.Key) ([]byte, error) { return nil, f.err }

func (f failingKV) PutIfAbsent(context.Context, kv.Key, []byte) (bool, error) { return false, f.err }

func newTestStore(t *testing.T) (*Store, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	s, err := NewStore(mem, password.DefaultConfig())
	require.NoError(t, err)
	return s, mem
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	_, err := s.Get(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_CreateThenGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mem := newTestStore(t)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	created, err := s.Create(ctx, "secret1", now)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, created.Role)
	assert.Len(t, created.Salt, password.SaltLength)
	assert.Equal(t, password.DeriveHash("secret1", created.Salt), created.PasswordHash)
	assert.Empty(t, created.Scheme)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.PasswordHash, got.PasswordHash)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	ok, err := s.CheckPassword(got, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CheckPassword(got, "secret2")
	require.NoError(t, err)
	assert.False(t, ok)

	raw, err := mem.Get(ctx, kv.IdentityKey())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.ElementsMatch(t, []string{"passwordHash", "salt", "createdAt", "role"}, keysOf(doc))
}

func TestStore_CreateOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestStore(t)

	first, err := s.Create(ctx, "secret1", time.Now())
	require.NoError(t, err)

	_, err = s.Create(ctx, "different", time.Now())
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.PasswordHash, got.PasswordHash)
}

func TestStore_CreateEmptyPassword(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	_, err := s.Create(context.Background(), "", time.Now())
	assert.True(t, IsInvalidInput(err))
}

func TestStore_ReadsLegacyRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mem := newTestStore(t)

	legacy := `{"passwordHash":"` + password.DeriveHash("secret1", "AbCdEfGhIjKlMnOp") +
		`","salt":"AbCdEfGhIjKlMnOp","createdAt":"2024-05-01T10:00:00.000Z","role":"admin"}`
	require.NoError(t, mem.Put(ctx, kv.IdentityKey(), []byte(legacy)))

	got, err := s.Get(ctx)
	require.NoError(t, err)

	ok, err := s.CheckPassword(got, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_CorruptRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mem := newTestStore(t)
	require.NoError(t, mem.Put(ctx, kv.IdentityKey(), []byte(`not json`)))

	_, err := s.Get(ctx)
	require.Error(t, err)
	assert.True(t, fault.IsStore(err))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_BackendFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("kv down")
	s, err := NewStore(failingKV{err: boom}, password.DefaultConfig())
	require.NoError(t, err)

	_, err = s.Get(context.Background())
	assert.True(t, fault.IsStore(err))
	assert.ErrorIs(t, err, boom)

	_, err = s.Create(context.Background(), "secret1", time.Now())
	assert.True(t, fault.IsStore(err))
}

func TestNewStore_NilKV(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, password.DefaultConfig())
	require.Error(t, err)
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
