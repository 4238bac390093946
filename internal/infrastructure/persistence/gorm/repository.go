package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	apperrors "github.com/mealforge/mealforge/pkg/errors"
)

// Repository implements outbound.RecipeRepository over GORM
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates the repository and optionally migrates the schema
func NewRepository(db *gorm.DB, logger *zap.Logger, autoMigrate bool) (*Repository, error) {
	if autoMigrate {
		if err := db.AutoMigrate(&DocumentModel{}, &NameIndexModel{}); err != nil {
			return nil, apperrors.NewStorageError("migrate schema", err)
		}
	}
	return &Repository{db: db, logger: logger}, nil
}

// FindAll returns every stored document. Rows that fail to deserialize
// are a hard failure, not silently dropped.
func (r *Repository) FindAll(ctx context.Context) ([]*recipe.Document, error) {
	var models []DocumentModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewStorageError("list recipe documents", err)
	}

	docs := make([]*recipe.Document, 0, len(models))
	for i := range models {
		doc, err := toDomain(&models[i])
		if err != nil {
			return nil, apperrors.NewValidationError("corrupt recipe document row").
				WithCause(err).
				WithMetadata("id", models[i].ID)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindByID returns the document or nil when absent
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Document, error) {
	var model DocumentModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("load recipe document", err)
	}

	doc, err := toDomain(&model)
	if err != nil {
		return nil, apperrors.NewValidationError("corrupt recipe document row").
			WithCause(err).
			WithMetadata("id", model.ID)
	}
	return doc, nil
}

// FindByName resolves via the name index. A missing index entry or an
// index entry whose document no longer exists both read as not-found.
func (r *Repository) FindByName(ctx context.Context, normalizedName string) (*recipe.Document, error) {
	var entry NameIndexModel
	err := r.db.WithContext(ctx).First(&entry, "normalized_name = ?", normalizedName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("resolve recipe name index", err)
	}

	id, err := uuid.Parse(entry.DocumentID)
	if err != nil {
		r.logger.Warn("name index entry holds an invalid document id",
			zap.String("name", normalizedName),
			zap.String("document_id", entry.DocumentID))
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// Save upserts the document, then writes the name index entry if this
// is the first save for the source title's normalized name. The two
// writes are intentionally ordered document-first: a crash in between
// leaves a document without an index entry, which reads as not-found
// and is replaced by the next generation run.
func (r *Repository) Save(ctx context.Context, doc *recipe.Document) error {
	model, err := toModel(doc)
	if err != nil {
		return apperrors.NewValidationError("unserializable recipe document").WithCause(err)
	}
	model.UpdatedAt = time.Now().UTC()

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"languages", "images", "generator_version", "translator_version", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return apperrors.NewStorageError("save recipe document", err)
	}

	src := doc.Source()
	if src == nil {
		return nil
	}
	name := recipe.NormalizeName(src.Title)
	if name == "" {
		return nil
	}

	entry := NameIndexModel{
		NormalizedName: name,
		DocumentID:     doc.ID.String(),
		CreatedAt:      time.Now().UTC(),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	if err != nil {
		return apperrors.NewStorageError("write recipe name index", err)
	}
	return nil
}

// Update applies merge-patch semantics inside a transaction and returns
// the fresh document.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch recipe.DocumentPatch) (*recipe.Document, error) {
	var updated *recipe.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model DocumentModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id.String()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("Recipe").WithMetadata("id", id.String())
		}
		if err != nil {
			return apperrors.NewStorageError("load recipe document", err)
		}

		doc, err := toDomain(&model)
		if err != nil {
			return apperrors.NewValidationError("corrupt recipe document row").WithCause(err)
		}

		patch.Apply(doc)
		doc.UpdatedAt = time.Now().UTC()

		fresh, err := toModel(doc)
		if err != nil {
			return apperrors.NewValidationError("unserializable recipe document").WithCause(err)
		}
		fresh.CreatedAt = model.CreatedAt

		if err := tx.Save(fresh).Error; err != nil {
			return apperrors.NewStorageError("update recipe document", err)
		}

		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByID removes the document row. Index entries are left to dangle
// and read as not-found.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&DocumentModel{}, "id = ?", id.String()).Error; err != nil {
		return apperrors.NewStorageError("delete recipe document", err)
	}
	return nil
}

var _ outbound.RecipeRepository = (*Repository)(nil)
