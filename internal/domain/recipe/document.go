// Package recipe contains the core domain model for generated recipe
// documents: one document per dish, localized renderings per language,
// and the content version tags used to detect stale generations.
package recipe

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Language is an ISO 639-1 language code
type Language string

const (
	// SourceLanguage is the language content is generated in first.
	// All translations derive from it.
	SourceLanguage Language = "en"

	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
)

// Unit is the fixed set of ingredient measurement units
type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
	UnitTeaspoon   Unit = "tsp"
	UnitTablespoon Unit = "tbsp"
	UnitCup        Unit = "cup"
	UnitPiece      Unit = "piece"
	UnitPinch      Unit = "pinch"
)

// TemperatureUnit is either celsius or fahrenheit
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
)

// ContentVersion records which prompt generations produced the document.
// A mismatch against the current versions marks the content as stale.
type ContentVersion struct {
	Generator  string `json:"generator"`
	Translator string `json:"translator"`
}

// Document is the persisted unit: one recipe, all of its localized
// renderings, and its generated image storage paths.
type Document struct {
	ID        uuid.UUID                      `json:"id"`
	Languages map[Language]*LocalizedRecipe  `json:"languages"`
	Images    []string                       `json:"images"`
	Version   ContentVersion                 `json:"version"`
	CreatedAt time.Time                      `json:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// LocalizedRecipe is one language's rendering of a recipe
type LocalizedRecipe struct {
	Title        string            `json:"title" validate:"required,max=40"`
	Description  string            `json:"description" validate:"required,min=30,max=80"`
	Category     string            `json:"category"`
	Difficulty   string            `json:"difficulty"`
	PrepTime     int               `json:"prep_time_minutes"`
	CookTime     int               `json:"cook_time_minutes"`
	Calories     int               `json:"calories"`
	Servings     int               `json:"servings"`
	Tags         []string          `json:"tags,omitempty"`
	Allergens    []string          `json:"allergens,omitempty"`
	Cuisines     []string          `json:"cuisines,omitempty"`
	Ingredients  []Ingredient      `json:"ingredients" validate:"required,dive"`
	Instructions []InstructionStep `json:"instructions" validate:"required,dive"`
	Tools        []string          `json:"tools,omitempty"`
	VideoURL     string            `json:"video_url,omitempty"`
}

// Ingredient is a quantity of a named ingredient, with optional
// one-level-deep alternatives
type Ingredient struct {
	Quantity     float64      `json:"quantity" validate:"gte=0"`
	Unit         Unit         `json:"unit"`
	Name         string       `json:"name" validate:"required"`
	Preparation  string       `json:"preparation,omitempty"`
	Alternatives []Ingredient `json:"alternatives,omitempty"`
}

// Temperature is a cooking temperature with its unit
type Temperature struct {
	Value float64         `json:"value"`
	Unit  TemperatureUnit `json:"unit"`
}

// InstructionStep is one ordered step of a recipe. Order defines the
// presentation sequence and is not necessarily the slice index.
type InstructionStep struct {
	Order           int          `json:"order" validate:"gte=1"`
	Description     string       `json:"description" validate:"required"`
	Tools           []string     `json:"tools,omitempty"`
	IngredientsUsed []string     `json:"ingredients_used,omitempty"`
	Temperature     *Temperature `json:"temperature,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
	Tip             string       `json:"tip,omitempty"`
	Images          []string     `json:"images,omitempty"`
}

var validate = validator.New()

// Validate checks structural invariants on a localized recipe. The
// generation contract is supposed to enforce these; the pipeline calls
// this defensively and logs rather than fails on soft violations.
func (r *LocalizedRecipe) Validate() error {
	return validate.Struct(r)
}

// NewDocument creates a Document with a fresh id and the source-language
// recipe populated
func NewDocument(source *LocalizedRecipe, version ContentVersion) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.New(),
		Languages: map[Language]*LocalizedRecipe{SourceLanguage: source},
		Images:    []string{},
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Source returns the source-language recipe, or nil if absent
func (d *Document) Source() *LocalizedRecipe {
	return d.Languages[SourceLanguage]
}

// HasLanguage reports whether the document carries a rendering for lang
func (d *Document) HasLanguage(lang Language) bool {
	r, ok := d.Languages[lang]
	return ok && r != nil
}

// MissingLanguages returns the subset of targets the document lacks
func (d *Document) MissingLanguages(targets []Language) []Language {
	var missing []Language
	for _, lang := range targets {
		if !d.HasLanguage(lang) {
			missing = append(missing, lang)
		}
	}
	return missing
}

// IsCurrent reports whether the document was produced by the given
// content versions
func (d *Document) IsCurrent(version ContentVersion) bool {
	return d.Version.Generator == version.Generator &&
		d.Version.Translator == version.Translator
}
