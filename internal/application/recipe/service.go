package recipe

import (
	"context"

	"github.com/google/uuid"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// Service is the read-side application service the transport layer
// talks to. It owns nothing but translation of repository results into
// application errors.
type Service struct {
	repo outbound.RecipeRepository
}

// NewService creates the read service over the fully decorated
// repository (caching inside, URL signing outermost).
func NewService(repo outbound.RecipeRepository) *Service {
	return &Service{repo: repo}
}

// ListRecipes returns every stored recipe document
func (s *Service) ListRecipes(ctx context.Context) ([]*recipe.Document, error) {
	return s.repo.FindAll(ctx)
}

// GetRecipe returns one document or a not-found error
func (s *Service) GetRecipe(ctx context.Context, id uuid.UUID) (*recipe.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.NewNotFoundError("recipe").WithMetadata("id", id.String())
	}
	return doc, nil
}

// GetRecipeByName resolves a document by its normalized name
func (s *Service) GetRecipeByName(ctx context.Context, name string) (*recipe.Document, error) {
	normalized := recipe.NormalizeName(name)
	doc, err := s.repo.FindByName(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.NewNotFoundError("recipe").WithMetadata("name", normalized)
	}
	return doc, nil
}
