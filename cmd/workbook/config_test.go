package workbook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
)

type brokenKV struct {
	kv.Store
	err error
}

func (b brokenKV) Get(context.Context, kv.Key) ([]byte, error) { return nil, b.err }

func (b brokenKV) Put(context.Context, kv.Key, []byte) error { return b.err }

func TestConfigStore_DefaultWhenAbsent(t *testing.T) {
	t.Parallel()

	s := NewConfigStore(kv.NewMemoryStore())
	got, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Configuration{Pages: []PageDefinition{{ID: "1", Title: "默认页面", Columns: 3}}}, got)
}

func TestConfigStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewConfigStore(kv.NewMemoryStore())

	in := Configuration{Pages: []PageDefinition{
		{ID: "1", Title: "默认页面", Columns: 3},
		{ID: "1700000000000", Title: "Inventory", Columns: 20},
		{ID: "1700000000001", Title: "Notes", Columns: 1},
	}}
	require.NoError(t, s.Put(ctx, in))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestConfigStore_EmptyPagesAllowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewConfigStore(kv.NewMemoryStore())

	require.NoError(t, s.Put(ctx, Configuration{Pages: []PageDefinition{}}))
	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got.Pages)
	assert.Empty(t, got.Pages)
}

func TestConfiguration_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Configuration
		wantMsg string
	}{
		{name: "nil pages", cfg: Configuration{}, wantMsg: MsgConfigInvalid},
		{name: "columns zero", cfg: Configuration{Pages: []PageDefinition{{ID: "1", Title: "a", Columns: 0}}}, wantMsg: MsgPageIncomplete},
		{name: "columns 21", cfg: Configuration{Pages: []PageDefinition{{ID: "1", Title: "a", Columns: 21}}}, wantMsg: MsgColumnsRange},
		{name: "columns negative", cfg: Configuration{Pages: []PageDefinition{{ID: "1", Title: "a", Columns: -1}}}, wantMsg: MsgColumnsRange},
		{name: "empty title", cfg: Configuration{Pages: []PageDefinition{{ID: "1", Title: "", Columns: 3}}}, wantMsg: MsgPageIncomplete},
		{name: "blank title", cfg: Configuration{Pages: []PageDefinition{{ID: "1", Title: "   ", Columns: 3}}}, wantMsg: MsgPageIncomplete},
		{name: "empty id", cfg: Configuration{Pages: []PageDefinition{{ID: "", Title: "a", Columns: 3}}}, wantMsg: MsgPageIncomplete},
		{
			name: "one bad page rejects all",
			cfg: Configuration{Pages: []PageDefinition{
				{ID: "1", Title: "ok", Columns: 3},
				{ID: "2", Title: "bad", Columns: 99},
			}},
			wantMsg: MsgColumnsRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.True(t, fault.IsValidation(err))
			assert.Equal(t, tc.wantMsg, fault.Message(err))
		})
	}

	ok := Configuration{Pages: []PageDefinition{{ID: "1", Title: "a", Columns: 1}, {ID: "2", Title: "b", Columns: 20}}}
	assert.NoError(t, ok.Validate())
}

func TestConfigStore_PutRejectsWithoutWriting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewConfigStore(kv.NewMemoryStore())

	valid := Configuration{Pages: []PageDefinition{{ID: "9", Title: "kept", Columns: 2}}}
	require.NoError(t, s.Put(ctx, valid))

	err := s.Put(ctx, Configuration{Pages: []PageDefinition{{ID: "9", Title: "kept", Columns: 21}}})
	require.Error(t, err)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, valid, got)
}

func TestDecodeConfiguration(t *testing.T) {
	t.Parallel()

	c, err := DecodeConfiguration([]byte(`{"pages":[{"id":"1","title":"t","columns":4}]}`))
	require.NoError(t, err)
	assert.Equal(t, 4, c.Pages[0].Columns)

	for _, body := range []string{
		`{"pages":[{"id":"1","title":"t","columns":2.5}]}`,
		`{"pages":[{"id":"1","title":"t","columns":"3"}]}`,
		`{"pages":"x"}`,
		`[]`,
		`nope`,
	} {
		_, err := DecodeConfiguration([]byte(body))
		assert.True(t, fault.IsValidation(err), body)
	}

	missing, err := DecodeConfiguration([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, fault.IsValidation(missing.Validate()))
}

func TestConfigStore_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("kv down")
	s := NewConfigStore(brokenKV{err: boom})

	_, err := s.Get(ctx)
	assert.True(t, fault.IsStore(err))
	assert.Equal(t, MsgConfigGetFail, fault.Message(err))
	assert.ErrorIs(t, err, boom)

	err = s.Put(ctx, DefaultConfiguration())
	assert.True(t, fault.IsStore(err))
	assert.Equal(t, MsgConfigPutFail, fault.Message(err))

	var unboundStore *ConfigStore
	_, err = unboundStore.Get(ctx)
	assert.ErrorIs(t, err, ErrUnbound)
	assert.Equal(t, MsgStoreUnbound, fault.Message(err))

	_, err = NewConfigStore(nil).Get(ctx)
	assert.ErrorIs(t, err, ErrUnbound)
}

func TestConfigStore_CorruptStoredValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Put(ctx, kv.ConfigKey(), []byte(`{{`)))

	_, err := NewConfigStore(mem).Get(ctx)
	assert.True(t, fault.IsStore(err))
}
