// Package recipe composes the read path: repository decorators for
// caching and signed image URLs, assembled explicitly so the layering
// (cache outside, signing outermost) is visible at the call site.
package recipe

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/infrastructure/cache"
	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// CachedRepository decorates a RecipeRepository with the multi-tier
// cache. Reads go cache-first; mutations write through and invalidate
// the affected scopes. Cache faults degrade to the inner repository,
// never to an error.
type CachedRepository struct {
	inner  outbound.RecipeRepository
	cache  *cache.MultiTier
	logger *zap.Logger
}

// NewCachedRepository wraps the repository with the cache
func NewCachedRepository(inner outbound.RecipeRepository, tiers *cache.MultiTier, logger *zap.Logger) *CachedRepository {
	return &CachedRepository{inner: inner, cache: tiers, logger: logger}
}

// FindAll serves the listing from cache when present, otherwise loads
// from the repository and populates the cache.
func (r *CachedRepository) FindAll(ctx context.Context) ([]*recipe.Document, error) {
	if raw, ok := r.cache.Get(ctx, cache.KeyAllRecipes); ok {
		var docs []*recipe.Document
		if err := json.Unmarshal(raw, &docs); err == nil {
			return docs, nil
		}
		// A value we cannot decode is a miss; drop it so the next read
		// does not pay the decode again
		r.logger.Warn("evicting malformed cached listing", zap.String("key", cache.KeyAllRecipes))
		r.cache.Delete(ctx, cache.KeyAllRecipes)
	}

	docs, err := r.inner.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(docs); err == nil {
		r.cache.Set(ctx, cache.KeyAllRecipes, raw, 0, cache.ListingScopes()...)
	}
	return docs, nil
}

// FindByID serves a single document cache-first
func (r *CachedRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Document, error) {
	key := cache.RecipeKey(id.String())

	if raw, ok := r.cache.Get(ctx, key); ok {
		var doc recipe.Document
		if err := json.Unmarshal(raw, &doc); err == nil {
			return &doc, nil
		}
		r.logger.Warn("evicting malformed cached document", zap.String("key", key))
		r.cache.Delete(ctx, key)
	}

	doc, err := r.inner.FindByID(ctx, id)
	if err != nil || doc == nil {
		return doc, err
	}

	if raw, err := json.Marshal(doc); err == nil {
		r.cache.Set(ctx, key, raw, 0, cache.RecipeScopes(id.String())...)
	}
	return doc, nil
}

// FindByName is not cached: the name index lookup backs the pipeline's
// idempotency check, which must see the store's truth.
func (r *CachedRepository) FindByName(ctx context.Context, normalizedName string) (*recipe.Document, error) {
	return r.inner.FindByName(ctx, normalizedName)
}

// Save writes through and invalidates every recipe-derived entry. The
// listing and the per-document entry are both stale after a save.
func (r *CachedRepository) Save(ctx context.Context, doc *recipe.Document) error {
	if err := r.inner.Save(ctx, doc); err != nil {
		return err
	}
	r.cache.InvalidateScope(ctx, cache.ScopeRecipes)
	return nil
}

// Update writes through, invalidates, and caches the fresh document
func (r *CachedRepository) Update(ctx context.Context, id uuid.UUID, patch recipe.DocumentPatch) (*recipe.Document, error) {
	updated, err := r.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	r.cache.InvalidateScope(ctx, cache.ScopeRecipes)
	if raw, err := json.Marshal(updated); err == nil {
		r.cache.Set(ctx, cache.RecipeKey(id.String()), raw, 0, cache.RecipeScopes(id.String())...)
	}
	return updated, nil
}

// DeleteByID removes the document and its cache entries
func (r *CachedRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := r.inner.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.cache.InvalidateScope(ctx, cache.RecipeScope(id.String()))
	r.cache.Delete(ctx, cache.KeyAllRecipes)
	return nil
}

var _ outbound.RecipeRepository = (*CachedRepository)(nil)
