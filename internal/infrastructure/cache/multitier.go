package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// Tier pairs a backend with the default TTL used when the composer
// writes into it without an explicit TTL (backfill included).
type Tier struct {
	Store      outbound.CacheStore
	DefaultTTL time.Duration
}

// MultiTier composes ordered cache backends, fastest first, into one
// logical cache. Reads scan tiers in order and backfill faster tiers on
// a hit; writes fan out to every tier. Backend failures are logged and
// absorbed: the cache is a performance optimization, never a
// correctness dependency, so no caller ever sees a CacheError from it.
type MultiTier struct {
	tiers  []Tier
	logger *zap.Logger

	// key -> scopes and scope -> keys, maintained explicitly so that
	// invalidating "all recipes" or "recipe #id" is a first-class
	// operation independent of any one backend's primitives.
	scopesByKey map[string][]string
	keysByScope map[string]map[string]struct{}
	mu          sync.Mutex
}

// NewMultiTier creates the composer over the given tiers
func NewMultiTier(logger *zap.Logger, tiers ...Tier) *MultiTier {
	return &MultiTier{
		tiers:       tiers,
		logger:      logger,
		scopesByKey: make(map[string][]string),
		keysByScope: make(map[string]map[string]struct{}),
	}
}

// Get scans tiers in order. On a hit at tier i the value is backfilled
// into tiers 0..i-1 so a cold process warms its local tiers from the
// shared one. Backfill failures never block returning the found value.
func (c *MultiTier) Get(ctx context.Context, key string) ([]byte, bool) {
	for i, tier := range c.tiers {
		value, err := tier.Store.Get(ctx, key)
		if err == ErrKeyNotFound {
			continue
		}
		if err != nil {
			c.logger.Warn("cache tier get failed, treating as miss",
				zap.String("tier", tier.Store.Name()),
				zap.String("key", key),
				zap.Error(err))
			continue
		}

		for j := 0; j < i; j++ {
			faster := c.tiers[j]
			if err := faster.Store.Set(ctx, key, value, faster.DefaultTTL); err != nil {
				c.logger.Warn("cache backfill failed",
					zap.String("tier", faster.Store.Name()),
					zap.String("key", key),
					zap.Error(err))
			}
		}
		return value, true
	}
	return nil, false
}

// Set writes to every tier. An explicit positive TTL is threaded
// through unchanged; a zero TTL falls back to each tier's default. A
// failing tier is skipped.
func (c *MultiTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration, scopes ...string) {
	for _, tier := range c.tiers {
		effective := ttl
		if effective == 0 {
			effective = tier.DefaultTTL
		}
		if err := tier.Store.Set(ctx, key, value, effective); err != nil {
			c.logger.Warn("cache tier set failed",
				zap.String("tier", tier.Store.Name()),
				zap.String("key", key),
				zap.Error(err))
		}
	}
	if len(scopes) > 0 {
		c.registerScopes(key, scopes)
	}
}

// Delete removes the key from every tier and drops its scope entries
func (c *MultiTier) Delete(ctx context.Context, keys ...string) {
	for _, tier := range c.tiers {
		if err := tier.Store.Delete(ctx, keys...); err != nil {
			c.logger.Warn("cache tier delete failed",
				zap.String("tier", tier.Store.Name()),
				zap.Strings("keys", keys),
				zap.Error(err))
		}
	}
	c.mu.Lock()
	for _, key := range keys {
		c.unregisterKeyLocked(key)
	}
	c.mu.Unlock()
}

// Clear empties every tier and the scope registry
func (c *MultiTier) Clear(ctx context.Context) {
	for _, tier := range c.tiers {
		if err := tier.Store.Clear(ctx); err != nil {
			c.logger.Warn("cache tier clear failed",
				zap.String("tier", tier.Store.Name()),
				zap.Error(err))
		}
	}
	c.mu.Lock()
	c.scopesByKey = make(map[string][]string)
	c.keysByScope = make(map[string]map[string]struct{})
	c.mu.Unlock()
}

// InvalidateScope deletes every key registered under the scope
func (c *MultiTier) InvalidateScope(ctx context.Context, scope string) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.keysByScope[scope]))
	for key := range c.keysByScope[scope] {
		keys = append(keys, key)
	}
	c.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	c.logger.Debug("invalidating cache scope",
		zap.String("scope", scope),
		zap.Int("keys", len(keys)))
	c.Delete(ctx, keys...)
}

func (c *MultiTier) registerScopes(key string, scopes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unregisterKeyLocked(key)
	c.scopesByKey[key] = scopes
	for _, scope := range scopes {
		if c.keysByScope[scope] == nil {
			c.keysByScope[scope] = make(map[string]struct{})
		}
		c.keysByScope[scope][key] = struct{}{}
	}
}

func (c *MultiTier) unregisterKeyLocked(key string) {
	for _, scope := range c.scopesByKey[key] {
		delete(c.keysByScope[scope], key)
		if len(c.keysByScope[scope]) == 0 {
			delete(c.keysByScope, scope)
		}
	}
	delete(c.scopesByKey, key)
}
