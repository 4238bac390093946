package cache

import "fmt"

// Cache key and scope naming. Keys are structured so every key maps to
// the invalidation scopes that cover it.
const (
	// ScopeRecipes covers every recipe-derived cache entry
	ScopeRecipes = "recipes"

	// KeyAllRecipes caches the full listing
	KeyAllRecipes = "recipe:all"
)

// RecipeKey returns the cache key for a single document
func RecipeKey(id string) string {
	return fmt.Sprintf("recipe:id:%s", id)
}

// RecipeScope returns the invalidation scope for a single document
func RecipeScope(id string) string {
	return fmt.Sprintf("recipe:%s", id)
}

// RecipeScopes returns the scopes covering a single-document key
func RecipeScopes(id string) []string {
	return []string{ScopeRecipes, RecipeScope(id)}
}

// ListingScopes returns the scopes covering the full-listing key
func ListingScopes() []string {
	return []string{ScopeRecipes}
}
