package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/cmd/identity"
	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
	"tabula/cmd/security/password"
	"tabula/cmd/security/token"
)

func newTestService(t *testing.T) (*Service, *identity.Store) {
	t.Helper()

	ids, err := identity.NewStore(kv.NewMemoryStore(), password.DefaultConfig())
	require.NoError(t, err)
	tokens, err := token.NewService([]byte("session-test-secret"))
	require.NoError(t, err)

	return NewService(ids, tokens, password.DefaultConfig(), nil), ids
}

func TestLogin_Validation(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		user, pass, msg string
	}{
		{"", "secret1", MsgCredentialsRequired},
		{"admin", "", MsgCredentialsRequired},
		{"admin", "12345", MsgPasswordTooShort},
	}
	for _, tc := range cases {
		_, err := s.Login(ctx, tc.user, tc.pass, time.Now())
		require.Error(t, err)
		assert.True(t, fault.IsValidation(err))
		assert.Equal(t, tc.msg, fault.Message(err))
	}
}

func TestLogin_BootstrapThenWrongPassword(t *testing.T) {
	t.Parallel()

	s, ids := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	first, err := s.Login(ctx, "admin", "secret1", now)
	require.NoError(t, err)
	assert.True(t, first.Bootstrapped)
	assert.Equal(t, int64(86400), first.ExpiresIn)
	assert.NotEmpty(t, first.Token)

	_, err = ids.Get(ctx)
	require.NoError(t, err)

	again, err := s.Login(ctx, "admin", "secret1", now)
	require.NoError(t, err)
	assert.False(t, again.Bootstrapped)

	_, err = s.Login(ctx, "admin", "different-password", now)
	require.Error(t, err)
	assert.True(t, fault.IsAuth(err))
	assert.Equal(t, MsgBadCredentials, fault.Message(err))
}

func TestLogin_UsernameNotCompared(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "admin", "secret1", time.Now())
	require.NoError(t, err)

	_, err = s.Login(ctx, "someone-else", "secret1", time.Now())
	assert.NoError(t, err)
}

func TestLogin_ConcurrentFirstLoginCreatesOneIdentity(t *testing.T) {
	t.Parallel()

	s, ids := newTestService(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		boots    int
		failures int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issued, err := s.Login(ctx, "admin", "secret1", time.Now())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			if issued.Bootstrapped {
				boots++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, boots)
	assert.Zero(t, failures)

	id, err := ids.Get(ctx)
	require.NoError(t, err)
	ok, err := ids.CheckPassword(id, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	now := time.Now()

	issued, err := s.Login(context.Background(), "admin", "secret1", now)
	require.NoError(t, err)

	p, err := s.Authenticate(issued.Token, now)
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.Equal(t, issued.ExpiresAt.Unix(), p.ExpiresAt.Unix())

	_, err = s.Authenticate(issued.Token, now.Add(25*time.Hour))
	assert.True(t, fault.IsAuth(err))
	assert.Equal(t, MsgTokenInvalid, fault.Message(err))

	_, err = s.Authenticate(issued.Token+"x", now)
	assert.Equal(t, MsgTokenInvalid, fault.Message(err))

	_, err = s.Authenticate("", now)
	assert.Equal(t, MsgUnauthorized, fault.Message(err))
}

type stubTokens struct{ err error }

func (s stubTokens) Issue(time.Time) (string, token.Claims, error) { return "", token.Claims{}, s.err }

func (s stubTokens) Verify(string, time.Time) (token.Claims, error) { return token.Claims{}, s.err }

type stubIdentities struct {
	getErr    error
	createErr error
}

func (s stubIdentities) Get(context.Context) (identity.Identity, error) {
	return identity.Identity{}, s.getErr
}

func (s stubIdentities) Create(context.Context, string, time.Time) (identity.Identity, error) {
	return identity.Identity{}, s.createErr
}

func (stubIdentities) CheckPassword(identity.Identity, string) (bool, error) { return true, nil }

func TestLogin_MissingSecretIsConfigurationError(t *testing.T) {
	t.Parallel()

	ids, err := identity.NewStore(kv.NewMemoryStore(), password.DefaultConfig())
	require.NoError(t, err)
	s := NewService(ids, stubTokens{err: token.ErrSecretMissing}, password.DefaultConfig(), nil)

	_, err = s.Login(context.Background(), "admin", "secret1", time.Now())
	assert.True(t, fault.IsConfiguration(err))

	_, err = s.Authenticate("a.b.c", time.Now())
	assert.True(t, fault.IsConfiguration(err))
}

func TestLogin_StoreFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("kv down")
	tokens, err := token.NewService([]byte("x-secret"))
	require.NoError(t, err)

	notFound := identity.OpError{Op: "identity.Get", Kind: identity.ErrNotFound}

	s := NewService(stubIdentities{getErr: notFound, createErr: fault.Store("identity.Create", "", boom)}, tokens, password.DefaultConfig(), nil)
	_, err = s.Login(context.Background(), "admin", "secret1", time.Now())
	assert.True(t, fault.IsStore(err))
	assert.Equal(t, MsgCreateFailed, fault.Message(err))

	s = NewService(stubIdentities{getErr: fault.Store("identity.Get", "", boom)}, tokens, password.DefaultConfig(), nil)
	_, err = s.Login(context.Background(), "admin", "secret1", time.Now())
	assert.True(t, fault.IsStore(err))
	assert.Equal(t, MsgLoginFailed, fault.Message(err))
	assert.ErrorIs(t, err, boom)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Username: "admin"})
	p, ok := PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "admin", p.Username)
}
