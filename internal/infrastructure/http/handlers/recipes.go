// Package handlers implements the JSON API endpoints
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apprecipe "github.com/mealforge/mealforge/internal/application/recipe"
	"github.com/mealforge/mealforge/pkg/errors"
)

// RecipeHandlers serves the recipe read endpoints
type RecipeHandlers struct {
	service  *apprecipe.Service
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRecipeHandlers creates the recipe handlers
func NewRecipeHandlers(service *apprecipe.Service, logger *zap.Logger) *RecipeHandlers {
	return &RecipeHandlers{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// List handles GET /api/v1/recipes
func (h *RecipeHandlers) List(c *gin.Context) {
	docs, err := h.service.ListRecipes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": docs, "total": len(docs)})
}

// Get handles GET /api/v1/recipes/:id
func (h *RecipeHandlers) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.NewValidationError("invalid recipe id"))
		return
	}

	doc, err := h.service.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// respondError maps application errors onto HTTP responses. Internal
// details stay in the logs; the client sees the code and message only.
func respondError(c *gin.Context, err error) {
	appErr := errors.Wrap(err, "request failed")
	_ = c.Error(err)
	c.JSON(appErr.StatusCode(), gin.H{"error": gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}})
}
