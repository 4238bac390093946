package recipe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// SignedImageRepository decorates reads with time-limited image URLs:
// stored documents carry durable storage paths, and this layer maps
// them to fetchable URLs on the way out. A signing failure yields the
// empty string, which is dropped rather than served.
//
// The decorator sits outermost so signed URLs, which expire, never
// enter the cache.
type SignedImageRepository struct {
	inner outbound.RecipeRepository
	store outbound.ObjectStore
	ttl   time.Duration
}

// NewSignedImageRepository wraps the repository with URL signing
func NewSignedImageRepository(inner outbound.RecipeRepository, store outbound.ObjectStore, ttl time.Duration) *SignedImageRepository {
	return &SignedImageRepository{inner: inner, store: store, ttl: ttl}
}

func (r *SignedImageRepository) sign(ctx context.Context, doc *recipe.Document) *recipe.Document {
	if doc == nil {
		return nil
	}

	signed := make([]string, 0, len(doc.Images))
	for _, path := range doc.Images {
		if url := r.store.SignURL(ctx, path, r.ttl); url != "" {
			signed = append(signed, url)
		}
	}

	out := *doc
	out.Images = signed

	for _, localized := range out.Languages {
		for i := range localized.Instructions {
			step := &localized.Instructions[i]
			if len(step.Images) == 0 {
				continue
			}
			stepSigned := make([]string, 0, len(step.Images))
			for _, path := range step.Images {
				if url := r.store.SignURL(ctx, path, r.ttl); url != "" {
					stepSigned = append(stepSigned, url)
				}
			}
			step.Images = stepSigned
		}
	}
	return &out
}

// FindAll returns every document with signed image URLs
func (r *SignedImageRepository) FindAll(ctx context.Context) ([]*recipe.Document, error) {
	docs, err := r.inner.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*recipe.Document, len(docs))
	for i, doc := range docs {
		out[i] = r.sign(ctx, doc)
	}
	return out, nil
}

// FindByID returns the document with signed image URLs
func (r *SignedImageRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Document, error) {
	doc, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.sign(ctx, doc), nil
}

// FindByName returns the document with signed image URLs
func (r *SignedImageRepository) FindByName(ctx context.Context, normalizedName string) (*recipe.Document, error) {
	doc, err := r.inner.FindByName(ctx, normalizedName)
	if err != nil {
		return nil, err
	}
	return r.sign(ctx, doc), nil
}

// Save passes through; storage paths are what gets persisted
func (r *SignedImageRepository) Save(ctx context.Context, doc *recipe.Document) error {
	return r.inner.Save(ctx, doc)
}

// Update passes through and signs the returned document
func (r *SignedImageRepository) Update(ctx context.Context, id uuid.UUID, patch recipe.DocumentPatch) (*recipe.Document, error) {
	updated, err := r.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return r.sign(ctx, updated), nil
}

// DeleteByID passes through
func (r *SignedImageRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.inner.DeleteByID(ctx, id)
}

var _ outbound.RecipeRepository = (*SignedImageRepository)(nil)
