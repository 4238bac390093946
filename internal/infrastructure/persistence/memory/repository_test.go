package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	apperrors "github.com/mealforge/mealforge/pkg/errors"
)

func testDocument(title string) *recipe.Document {
	source := &recipe.LocalizedRecipe{
		Title:       title,
		Description: "A quick weeknight classic with minimal cleanup.",
		PrepTime:    10,
		CookTime:    20,
		Ingredients: []recipe.Ingredient{{Quantity: 1, Unit: recipe.UnitPiece, Name: "onion"}},
		Instructions: []recipe.InstructionStep{
			{Order: 1, Description: "Chop the onion."},
		},
	}
	return recipe.NewDocument(source, recipe.ContentVersion{Generator: "gen-v2", Translator: "tr-v1"})
}

func TestRepositorySaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	doc := testDocument("Chicken Curry")

	require.NoError(t, repo.Save(ctx, doc))

	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, doc.ID, found.ID)
	assert.Equal(t, "Chicken Curry", found.Source().Title)

	byName, err := repo.FindByName(ctx, "chicken-curry")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, doc.ID, byName.ID)
}

func TestRepositoryFindMissingIsNilNil(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	doc, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = repo.FindByName(ctx, "never-generated")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestRepositoryNameIndexFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	first := testDocument("Chicken Curry")
	second := testDocument("Chicken Curry")
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	found, err := repo.FindByName(ctx, "chicken-curry")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestRepositoryResaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	doc := testDocument("Chicken Curry")

	require.NoError(t, repo.Save(ctx, doc))
	stored, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	doc.Images = []string{"recipes/chicken-curry/gen-v2/0.jpg"}
	require.NoError(t, repo.Save(ctx, doc))

	resaved, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.CreatedAt, resaved.CreatedAt)
	assert.True(t, resaved.UpdatedAt.After(stored.UpdatedAt) || resaved.UpdatedAt.Equal(stored.UpdatedAt))
}

func TestRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	doc := testDocument("Chicken Curry")
	require.NoError(t, repo.Save(ctx, doc))

	images := []string{"recipes/chicken-curry/gen-v2/0.jpg"}
	updated, err := repo.Update(ctx, doc.ID, recipe.DocumentPatch{Images: &images})
	require.NoError(t, err)
	assert.Equal(t, images, updated.Images)
	assert.Equal(t, doc.ID, updated.ID)

	// The patch landed in storage, not just the returned copy
	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, images, found.Images)
}

func TestRepositoryUpdateMissing(t *testing.T) {
	repo := NewRepository()
	_, err := repo.Update(context.Background(), uuid.New(), recipe.DocumentPatch{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestRepositoryDeleteLeavesDanglingIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	doc := testDocument("Chicken Curry")
	require.NoError(t, repo.Save(ctx, doc))

	require.NoError(t, repo.DeleteByID(ctx, doc.ID))

	// The dangling index entry reads as not-found
	found, err := repo.FindByName(ctx, "chicken-curry")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	doc := testDocument("Chicken Curry")
	require.NoError(t, repo.Save(ctx, doc))

	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	found.Source().Title = "mutated"

	again, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Curry", again.Source().Title)
}
