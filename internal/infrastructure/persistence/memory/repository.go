// Package memory provides an in-memory document repository used for
// tests and local development.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// Repository stores documents and the name index in process memory
type Repository struct {
	documents map[uuid.UUID]*recipe.Document
	nameIndex map[string]uuid.UUID
	mu        sync.RWMutex
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		documents: make(map[uuid.UUID]*recipe.Document),
		nameIndex: make(map[string]uuid.UUID),
	}
}

// FindAll returns every stored document
func (r *Repository) FindAll(_ context.Context) ([]*recipe.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*recipe.Document, 0, len(r.documents))
	for _, doc := range r.documents {
		docs = append(docs, clone(doc))
	}
	return docs, nil
}

// FindByID returns the document or nil when absent
func (r *Repository) FindByID(_ context.Context, id uuid.UUID) (*recipe.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[id]
	if !ok {
		return nil, nil
	}
	return clone(doc), nil
}

// FindByName resolves via the name index; dangling entries read as nil
func (r *Repository) FindByName(_ context.Context, normalizedName string) (*recipe.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.nameIndex[normalizedName]
	if !ok {
		return nil, nil
	}
	doc, ok := r.documents[id]
	if !ok {
		return nil, nil
	}
	return clone(doc), nil
}

// Save upserts the document and writes the name index entry on first save
func (r *Repository) Save(_ context.Context, doc *recipe.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := clone(doc)
	stored.UpdatedAt = time.Now().UTC()
	if existing, ok := r.documents[doc.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.documents[doc.ID] = stored

	if src := doc.Source(); src != nil {
		name := recipe.NormalizeName(src.Title)
		if _, ok := r.nameIndex[name]; !ok {
			r.nameIndex[name] = doc.ID
		}
	}
	return nil
}

// Update applies merge-patch semantics and returns the fresh document
func (r *Repository) Update(_ context.Context, id uuid.UUID, patch recipe.DocumentPatch) (*recipe.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return nil, errors.NewNotFoundError("Recipe").WithMetadata("id", id.String())
	}

	patch.Apply(doc)
	doc.UpdatedAt = time.Now().UTC()
	return clone(doc), nil
}

// DeleteByID removes the document; the name index entry is left to
// dangle and reads as not-found.
func (r *Repository) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.documents, id)
	return nil
}

// clone deep-copies a document so callers never share storage
func clone(doc *recipe.Document) *recipe.Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var out recipe.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return doc
	}
	return &out
}

var _ outbound.RecipeRepository = (*Repository)(nil)
