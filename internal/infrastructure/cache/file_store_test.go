package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	_, err := store.Get(ctx, "missing")
	assert.Equal(t, ErrKeyNotFound, err)

	require.NoError(t, store.Set(ctx, "recipe:all", []byte(`{"recipes":[]}`), time.Hour))
	value, err := store.Get(ctx, "recipe:all")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"recipes":[]}`), value)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("persisted"), time.Hour))

	second, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	value, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), value)
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.Equal(t, ErrKeyNotFound, err)

	// The expired entry's file is removed on read
	matches, err := filepath.Glob(filepath.Join(store.dir, "*.cache"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStoreCorruptEntryReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, os.WriteFile(store.pathFor("k"), []byte("not json"), 0o644))

	_, err := store.Get(ctx, "k")
	assert.Equal(t, ErrKeyNotFound, err)

	// And the corrupt file is gone
	_, statErr := os.Stat(store.pathFor("k"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStoreSweepExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Set(ctx, "live", []byte("v"), time.Hour))
	require.NoError(t, store.Set(ctx, "dead", []byte("v"), 10*time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, store.SweepExpired())

	_, err := store.Get(ctx, "live")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Clear(ctx))

	ok, err := store.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
