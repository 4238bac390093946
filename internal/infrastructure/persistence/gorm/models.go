// Package gorm provides the GORM-backed document repository. Documents
// are stored as single rows with JSON-serialized language and image
// columns; the name index is its own small table.
package gorm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealforge/mealforge/internal/domain/recipe"
)

// DocumentModel is the database row for a recipe document
type DocumentModel struct {
	ID                string    `gorm:"primaryKey;size:36"`
	Languages         []byte    `gorm:"type:json;not null"`
	Images            []byte    `gorm:"type:json;not null"`
	GeneratorVersion  string    `gorm:"size:64;not null"`
	TranslatorVersion string    `gorm:"size:64;not null"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for document rows
func (DocumentModel) TableName() string { return "recipe_documents" }

// NameIndexModel maps a normalized recipe name to a document id
type NameIndexModel struct {
	NormalizedName string    `gorm:"primaryKey;size:255"`
	DocumentID     string    `gorm:"size:36;not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for name index rows
func (NameIndexModel) TableName() string { return "recipe_name_index" }

// toModel maps a domain document to its row representation
func toModel(doc *recipe.Document) (*DocumentModel, error) {
	languages, err := json.Marshal(doc.Languages)
	if err != nil {
		return nil, fmt.Errorf("marshal languages: %w", err)
	}
	images := doc.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}

	return &DocumentModel{
		ID:                doc.ID.String(),
		Languages:         languages,
		Images:            imagesJSON,
		GeneratorVersion:  doc.Version.Generator,
		TranslatorVersion: doc.Version.Translator,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

// toDomain maps a row back to the domain document
func toDomain(model *DocumentModel) (*recipe.Document, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}

	var languages map[recipe.Language]*recipe.LocalizedRecipe
	if err := json.Unmarshal(model.Languages, &languages); err != nil {
		return nil, fmt.Errorf("unmarshal languages: %w", err)
	}
	var images []string
	if err := json.Unmarshal(model.Images, &images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}

	return &recipe.Document{
		ID:        id,
		Languages: languages,
		Images:    images,
		Version: recipe.ContentVersion{
			Generator:  model.GeneratorVersion,
			Translator: model.TranslatorVersion,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
