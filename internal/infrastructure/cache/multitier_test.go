package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// countingStore wraps a backend and counts operations so tests can
// assert which tiers were touched.
type countingStore struct {
	outbound.CacheStore
	gets int
	sets int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.CacheStore.Get(ctx, key)
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	return c.CacheStore.Set(ctx, key, value, ttl)
}

// failingStore errors on every operation
type failingStore struct{}

func (f *failingStore) Name() string { return "failing" }
func (f *failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("backend down")
}
func (f *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return fmt.Errorf("backend down")
}
func (f *failingStore) Delete(context.Context, ...string) error { return fmt.Errorf("backend down") }
func (f *failingStore) Clear(context.Context) error             { return fmt.Errorf("backend down") }
func (f *failingStore) Has(context.Context, string) (bool, error) {
	return false, fmt.Errorf("backend down")
}

func TestMultiTierReadThrough(t *testing.T) {
	ctx := context.Background()
	fast := &countingStore{CacheStore: NewMemoryStore(10)}
	slow := &countingStore{CacheStore: NewMemoryStore(10)}
	mt := NewMultiTier(zap.NewNop(), Tier{fast, time.Minute}, Tier{slow, time.Hour})

	// Seed only the slow tier, as if another process wrote it
	require.NoError(t, slow.CacheStore.Set(ctx, "k", []byte("v"), time.Hour))

	value, ok := mt.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	// The hit was backfilled into the fast tier
	assert.Equal(t, 1, fast.sets)

	// A second read stops at the fast tier
	slowGets := slow.gets
	_, ok = mt.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, slowGets, slow.gets)
}

func TestMultiTierSetFansOut(t *testing.T) {
	ctx := context.Background()
	fast := NewMemoryStore(10)
	slow := NewMemoryStore(10)
	mt := NewMultiTier(zap.NewNop(), Tier{fast, time.Minute}, Tier{slow, time.Hour})

	mt.Set(ctx, "k", []byte("v"), 0)

	for _, store := range []outbound.CacheStore{fast, slow} {
		value, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), value)
	}
}

func TestMultiTierAbsorbsBackendFailures(t *testing.T) {
	ctx := context.Background()
	healthy := NewMemoryStore(10)
	mt := NewMultiTier(zap.NewNop(), Tier{&failingStore{}, time.Minute}, Tier{healthy, time.Hour})

	// Set succeeds on the healthy tier despite the failing one
	mt.Set(ctx, "k", []byte("v"), 0)

	value, ok := mt.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	// Delete and Clear do not propagate the failure either
	mt.Delete(ctx, "k")
	mt.Clear(ctx)
	_, ok = mt.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMultiTierMiss(t *testing.T) {
	mt := NewMultiTier(zap.NewNop(), Tier{NewMemoryStore(10), time.Minute})
	_, ok := mt.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestMultiTierScopeInvalidation(t *testing.T) {
	ctx := context.Background()
	mt := NewMultiTier(zap.NewNop(), Tier{NewMemoryStore(10), time.Minute})

	mt.Set(ctx, RecipeKey("a"), []byte("1"), 0, RecipeScopes("a")...)
	mt.Set(ctx, RecipeKey("b"), []byte("2"), 0, RecipeScopes("b")...)
	mt.Set(ctx, KeyAllRecipes, []byte("[]"), 0, ListingScopes()...)

	// Invalidating one document drops it and nothing else
	mt.InvalidateScope(ctx, RecipeScope("a"))
	_, ok := mt.Get(ctx, RecipeKey("a"))
	assert.False(t, ok)
	_, ok = mt.Get(ctx, RecipeKey("b"))
	assert.True(t, ok)

	// Invalidating the broad scope drops everything recipe-derived
	mt.InvalidateScope(ctx, ScopeRecipes)
	_, ok = mt.Get(ctx, RecipeKey("b"))
	assert.False(t, ok)
	_, ok = mt.Get(ctx, KeyAllRecipes)
	assert.False(t, ok)
}

func TestMultiTierExplicitTTLThreadsThrough(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	mt := NewMultiTier(zap.NewNop(), Tier{store, time.Hour})

	mt.Set(ctx, "short", []byte("v"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	_, ok := mt.Get(ctx, "short")
	assert.False(t, ok)
}
