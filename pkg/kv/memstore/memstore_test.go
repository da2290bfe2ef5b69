package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/kv/memstore"
	"github.com/cuemby/ledger/pkg/txnerr"
)

func TestSaveGetDelete(t *testing.T) {
	s := memstore.New(memstore.Options{})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", &entity.Entity{Key: "k", Version: 1, Payload: []byte("v")}))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got.Payload)

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSave_RejectsEmptyKey(t *testing.T) {
	s := memstore.New(memstore.Options{})
	err := s.Save(context.Background(), "", &entity.Entity{Version: 1})
	require.Error(t, err)
	assert.True(t, txnerr.Is(err, txnerr.InvalidKey))
}

func TestSave_RejectsValueOverLimit(t *testing.T) {
	s := memstore.New(memstore.Options{MaxValueBytes: 4})
	err := s.Save(context.Background(), "k", &entity.Entity{Key: "k", Version: 1, Payload: []byte("toolong")})
	require.Error(t, err)
	assert.True(t, txnerr.Is(err, txnerr.ValueTooLarge))
}

func TestGetMany_SkipsMissingKeys(t *testing.T) {
	s := memstore.New(memstore.Options{})
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "a", &entity.Entity{Key: "a", Version: 1}))

	got, err := s.GetMany(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	_, ok := got["a"]
	assert.True(t, ok)
}

func TestGetAll_FiltersByPredicate(t *testing.T) {
	s := memstore.New(memstore.Options{})
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "a", &entity.Entity{Key: "a", Version: 1}))
	require.NoError(t, s.Save(ctx, "b", &entity.Entity{Key: "b", Version: 1}))

	got, err := s.GetAll(ctx, func(key string, _ *entity.Entity) bool { return key == "a" })
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCountAndClear(t *testing.T) {
	s := memstore.New(memstore.Options{})
	ctx := context.Background()
	require.NoError(t, s.SaveMany(ctx, map[string]*entity.Entity{
		"a": {Key: "a", Version: 1},
		"b": {Key: "b", Version: 1},
	}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.Clear(ctx))
	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRollback_PreservesStateWrittenBeforeRollingBack(t *testing.T) {
	s := memstore.New(memstore.Options{})
	ctx := context.Background()

	// A direct Save establishes a precondition the way a caller would
	// before ever enlisting this store in a session; no writes happen in
	// between, mirroring a session whose resource adapter never reached
	// its own Commit before the session rolled back.
	require.NoError(t, s.Save(ctx, "k", &entity.Entity{Key: "k", Version: 1, Payload: []byte("precondition")}))
	require.NoError(t, s.Rollback(ctx))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok, "rollback must not erase state that predates the rolled-back session")
	assert.Equal(t, []byte("precondition"), got.Payload)
}

func TestCommitThenRollback_BaselineTracksLastWrite(t *testing.T) {
	s := memstore.New(memstore.Options{})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", &entity.Entity{Key: "k", Version: 1, Payload: []byte("first")}))
	_, err := s.Prepare(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.Save(ctx, "k", &entity.Entity{Key: "k", Version: 2, Payload: []byte("second")}))
	require.NoError(t, s.Rollback(ctx))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), got.Payload)
}
