package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	_, err := store.Get(ctx, "missing")
	assert.Equal(t, ErrKeyNotFound, err)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	// Mutating the returned slice must not touch the cached value
	value[0] = 'x'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), 20*time.Millisecond))

	_, err := store.Get(ctx, "short")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = store.Get(ctx, "short")
	assert.Equal(t, ErrKeyNotFound, err)
	assert.Equal(t, 0, store.Size())
}

func TestMemoryStoreLRUEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, key, []byte(key), 0))
	}

	// Touch "a" so "b" becomes the least recently used
	_, err := store.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "d", []byte("d"), 0))

	_, err = store.Get(ctx, "b")
	assert.Equal(t, ErrKeyNotFound, err)
	for _, key := range []string{"a", "c", "d"} {
		_, err := store.Get(ctx, key)
		assert.NoError(t, err, "key %q should survive eviction", key)
	}
}

func TestMemoryStoreDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, store.Delete(ctx, "a"))
	ok, err := store.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, store.Size())
}
