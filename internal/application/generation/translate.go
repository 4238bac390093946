package generation

import "github.com/mealforge/mealforge/internal/domain/recipe"

// translatablePayload is the projection of a LocalizedRecipe that
// carries only human-language fields. Numeric and structural fields
// (times, calories, servings, quantities, units, step order,
// temperature, duration, difficulty, category) never enter a
// translation call; they pass through from the source unchanged.
type translatablePayload struct {
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Tags         []string                 `json:"tags,omitempty"`
	Allergens    []string                 `json:"allergens,omitempty"`
	Cuisines     []string                 `json:"cuisines,omitempty"`
	Tools        []string                 `json:"tools,omitempty"`
	Ingredients  []translatableIngredient `json:"ingredients"`
	Instructions []translatableStep       `json:"instructions"`
}

type translatableIngredient struct {
	Name         string                   `json:"name"`
	Preparation  string                   `json:"preparation,omitempty"`
	Alternatives []translatableIngredient `json:"alternatives,omitempty"`
}

type translatableStep struct {
	Description     string   `json:"description"`
	Tip             string   `json:"tip,omitempty"`
	Tools           []string `json:"tools,omitempty"`
	IngredientsUsed []string `json:"ingredients_used,omitempty"`
}

// extractTranslatable projects the language-bearing fields of a recipe
func extractTranslatable(src *recipe.LocalizedRecipe) translatablePayload {
	payload := translatablePayload{
		Title:       src.Title,
		Description: src.Description,
		Tags:        src.Tags,
		Allergens:   src.Allergens,
		Cuisines:    src.Cuisines,
		Tools:       src.Tools,
	}
	for _, ing := range src.Ingredients {
		payload.Ingredients = append(payload.Ingredients, projectIngredient(ing))
	}
	for _, step := range src.Instructions {
		payload.Instructions = append(payload.Instructions, translatableStep{
			Description:     step.Description,
			Tip:             step.Tip,
			Tools:           step.Tools,
			IngredientsUsed: step.IngredientsUsed,
		})
	}
	return payload
}

func projectIngredient(ing recipe.Ingredient) translatableIngredient {
	out := translatableIngredient{
		Name:        ing.Name,
		Preparation: ing.Preparation,
	}
	for _, alt := range ing.Alternatives {
		out.Alternatives = append(out.Alternatives, translatableIngredient{
			Name:        alt.Name,
			Preparation: alt.Preparation,
		})
	}
	return out
}

// mergeTranslated reassembles a full localized recipe: translated text
// fields layered over a structural copy of the source. When the model
// returns mismatched array lengths, the source text is kept for the
// entries past the translated range rather than dropping structure.
func mergeTranslated(src *recipe.LocalizedRecipe, translated translatablePayload) *recipe.LocalizedRecipe {
	out := *src

	out.Title = translated.Title
	out.Description = translated.Description
	if translated.Tags != nil {
		out.Tags = translated.Tags
	}
	if translated.Allergens != nil {
		out.Allergens = translated.Allergens
	}
	if translated.Cuisines != nil {
		out.Cuisines = translated.Cuisines
	}
	if translated.Tools != nil {
		out.Tools = translated.Tools
	}

	out.Ingredients = make([]recipe.Ingredient, len(src.Ingredients))
	for i, ing := range src.Ingredients {
		merged := ing
		if i < len(translated.Ingredients) {
			tr := translated.Ingredients[i]
			merged.Name = tr.Name
			merged.Preparation = tr.Preparation
			merged.Alternatives = make([]recipe.Ingredient, len(ing.Alternatives))
			for j, alt := range ing.Alternatives {
				mergedAlt := alt
				if j < len(tr.Alternatives) {
					mergedAlt.Name = tr.Alternatives[j].Name
					mergedAlt.Preparation = tr.Alternatives[j].Preparation
				}
				merged.Alternatives[j] = mergedAlt
			}
		}
		out.Ingredients[i] = merged
	}

	out.Instructions = make([]recipe.InstructionStep, len(src.Instructions))
	for i, step := range src.Instructions {
		merged := step
		if i < len(translated.Instructions) {
			tr := translated.Instructions[i]
			merged.Description = tr.Description
			merged.Tip = tr.Tip
			if tr.Tools != nil {
				merged.Tools = tr.Tools
			}
			if tr.IngredientsUsed != nil {
				merged.IngredientsUsed = tr.IngredientsUsed
			}
		}
		out.Instructions[i] = merged
	}

	return &out
}
