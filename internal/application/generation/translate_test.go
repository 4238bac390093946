package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealforge/mealforge/internal/domain/recipe"
)

func sourceRecipe() *recipe.LocalizedRecipe {
	duration := 8
	return &recipe.LocalizedRecipe{
		Title:       "Garlic Butter Shrimp",
		Description: "Fast seared shrimp in a garlicky butter pan sauce.",
		Category:    "main",
		Difficulty:  "easy",
		PrepTime:    5,
		CookTime:    10,
		Calories:    320,
		Servings:    2,
		Tags:        []string{"seafood", "quick"},
		Ingredients: []recipe.Ingredient{
			{Quantity: 400, Unit: recipe.UnitGram, Name: "shrimp", Preparation: "peeled",
				Alternatives: []recipe.Ingredient{{Quantity: 400, Unit: recipe.UnitGram, Name: "scallops"}}},
			{Quantity: 3, Unit: recipe.UnitPiece, Name: "garlic clove", Preparation: "sliced"},
		},
		Instructions: []recipe.InstructionStep{
			{Order: 1, Description: "Sear the shrimp.", Tools: []string{"skillet"},
				Temperature: &recipe.Temperature{Value: 220, Unit: recipe.Celsius}},
			{Order: 2, Description: "Add garlic and butter.", DurationMinutes: &duration, Tip: "Do not brown the garlic."},
		},
	}
}

func TestExtractTranslatableProjectsTextOnly(t *testing.T) {
	payload := extractTranslatable(sourceRecipe())

	assert.Equal(t, "Garlic Butter Shrimp", payload.Title)
	require.Len(t, payload.Ingredients, 2)
	assert.Equal(t, "shrimp", payload.Ingredients[0].Name)
	assert.Equal(t, "peeled", payload.Ingredients[0].Preparation)
	require.Len(t, payload.Ingredients[0].Alternatives, 1)
	require.Len(t, payload.Instructions, 2)
	assert.Equal(t, "Do not brown the garlic.", payload.Instructions[1].Tip)
}

func TestMergeTranslatedLayersTextOverStructure(t *testing.T) {
	src := sourceRecipe()
	translated := extractTranslatable(src)
	translated.Title = "蒜香黄油虾"
	translated.Description = "蒜香黄油锅底快煎虾，十五分钟上桌。"
	translated.Ingredients[0].Name = "虾"
	translated.Ingredients[0].Alternatives[0].Name = "扇贝"
	translated.Instructions[0].Description = "煎虾。"

	merged := mergeTranslated(src, translated)

	assert.Equal(t, "蒜香黄油虾", merged.Title)
	assert.Equal(t, "虾", merged.Ingredients[0].Name)
	assert.Equal(t, "扇贝", merged.Ingredients[0].Alternatives[0].Name)
	assert.Equal(t, "煎虾。", merged.Instructions[0].Description)

	// Structural fields pass through untouched
	assert.Equal(t, 5, merged.PrepTime)
	assert.Equal(t, 10, merged.CookTime)
	assert.Equal(t, 320, merged.Calories)
	assert.Equal(t, 400.0, merged.Ingredients[0].Quantity)
	assert.Equal(t, recipe.UnitGram, merged.Ingredients[0].Unit)
	require.NotNil(t, merged.Instructions[0].Temperature)
	assert.Equal(t, 220.0, merged.Instructions[0].Temperature.Value)
	require.NotNil(t, merged.Instructions[1].DurationMinutes)
	assert.Equal(t, 8, *merged.Instructions[1].DurationMinutes)

	// The source is not mutated
	assert.Equal(t, "Garlic Butter Shrimp", src.Title)
	assert.Equal(t, "shrimp", src.Ingredients[0].Name)
}

func TestMergeTranslatedShortArraysKeepSourceText(t *testing.T) {
	src := sourceRecipe()
	translated := translatablePayload{
		Title:       "蒜香黄油虾",
		Description: "蒜香黄油锅底快煎虾，十五分钟上桌。",
		Ingredients: []translatableIngredient{{Name: "虾"}},
		// Instructions entirely missing from the response
	}

	merged := mergeTranslated(src, translated)

	// Structure keeps the source's lengths
	require.Len(t, merged.Ingredients, 2)
	assert.Equal(t, "虾", merged.Ingredients[0].Name)
	assert.Equal(t, "garlic clove", merged.Ingredients[1].Name)
	require.Len(t, merged.Instructions, 2)
	assert.Equal(t, "Sear the shrimp.", merged.Instructions[0].Description)
}
