package generation

import (
	"encoding/json"
	"fmt"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// Prompt content versions. Bumping one marks every document produced by
// the previous prompt as stale.
const (
	generatorVersion  = "gen-v2"
	translatorVersion = "tr-v1"
)

// currentVersion returns the content version a fresh run produces
func currentVersion() recipe.ContentVersion {
	return recipe.ContentVersion{
		Generator:  generatorVersion,
		Translator: translatorVersion,
	}
}

// recipeSchema constrains the structured output of source generation to
// the LocalizedRecipe shape.
var recipeSchema = json.RawMessage(`{
  "name": "localized_recipe",
  "strict": true,
  "schema": {
    "type": "object",
    "required": ["title", "description", "category", "difficulty", "prep_time_minutes", "cook_time_minutes", "calories", "servings", "ingredients", "instructions"],
    "properties": {
      "title": {"type": "string", "maxLength": 40},
      "description": {"type": "string", "minLength": 30, "maxLength": 80},
      "category": {"type": "string"},
      "difficulty": {"type": "string", "enum": ["easy", "medium", "hard"]},
      "prep_time_minutes": {"type": "integer"},
      "cook_time_minutes": {"type": "integer"},
      "calories": {"type": "integer"},
      "servings": {"type": "integer"},
      "tags": {"type": "array", "items": {"type": "string"}},
      "allergens": {"type": "array", "items": {"type": "string"}},
      "cuisines": {"type": "array", "items": {"type": "string"}},
      "tools": {"type": "array", "items": {"type": "string"}},
      "ingredients": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["quantity", "unit", "name"],
          "properties": {
            "quantity": {"type": "number"},
            "unit": {"type": "string", "enum": ["g", "kg", "ml", "l", "tsp", "tbsp", "cup", "piece", "pinch"]},
            "name": {"type": "string"},
            "preparation": {"type": "string"},
            "alternatives": {"type": "array"}
          }
        }
      },
      "instructions": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["order", "description"],
          "properties": {
            "order": {"type": "integer"},
            "description": {"type": "string"},
            "tools": {"type": "array", "items": {"type": "string"}},
            "ingredients_used": {"type": "array", "items": {"type": "string"}},
            "temperature": {"type": "object"},
            "duration_minutes": {"type": "integer"},
            "tip": {"type": "string"}
          }
        }
      }
    }
  }
}`)

// translationSchema constrains translation output to the translatable
// projection so structural fields cannot leak through the model.
var translationSchema = json.RawMessage(`{
  "name": "recipe_translation",
  "strict": true,
  "schema": {
    "type": "object",
    "required": ["title", "description", "ingredients", "instructions"],
    "properties": {
      "title": {"type": "string", "maxLength": 40},
      "description": {"type": "string"},
      "tags": {"type": "array", "items": {"type": "string"}},
      "allergens": {"type": "array", "items": {"type": "string"}},
      "cuisines": {"type": "array", "items": {"type": "string"}},
      "tools": {"type": "array", "items": {"type": "string"}},
      "ingredients": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name"],
          "properties": {
            "name": {"type": "string"},
            "preparation": {"type": "string"},
            "alternatives": {"type": "array", "items": {"type": "object"}}
          }
        }
      },
      "instructions": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["description"],
          "properties": {
            "description": {"type": "string"},
            "tip": {"type": "string"},
            "tools": {"type": "array", "items": {"type": "string"}},
            "ingredients_used": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    }
  }
}`)

func recipeMessages(name string) []outbound.ChatMessage {
	return []outbound.ChatMessage{
		{
			Role: "system",
			Content: "You are an expert chef and recipe developer. Respond with ONLY a valid JSON " +
				"object matching the provided schema. The title must be the dish name exactly as " +
				"given, at most 40 characters. The description must be between 30 and 80 characters. " +
				"Instructions must be ordered starting from 1, each a complete, practical step.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Create a complete recipe for: %s", name),
		},
	}
}

func imagePrompt(title, description string) string {
	return fmt.Sprintf(
		"Professional food photography of %s. %s. Overhead shot, natural light, shallow depth of field, appetizing plating.",
		title, description)
}

func translationMessages(lang recipe.Language, payload []byte) []outbound.ChatMessage {
	return []outbound.ChatMessage{
		{
			Role: "system",
			Content: fmt.Sprintf("You are a culinary translator. Translate every text value of the "+
				"given JSON document into the language with ISO code %q. Keep the JSON structure and "+
				"array lengths identical. Do not add, remove, or reorder entries. Respond with ONLY "+
				"the translated JSON.", lang),
		},
		{
			Role:    "user",
			Content: string(payload),
		},
	}
}
