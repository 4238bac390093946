// Package generation orchestrates the end-to-end creation of a recipe
// document: idempotency check, source-language generation, image
// generation and upload, translation fan-out, persistence, and
// progress reporting.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// Pipeline stages, strictly ordered. The only permitted skips are the
// idempotency short-circuits out of StageChecking.
const (
	StageChecking    = "Checking Database"
	StageGenerating  = "Generating Source Recipe"
	StageImaging     = "Generating Image"
	StageTranslating = "Translating"
	StageUploading   = "Uploading"
	StageComplete    = "Complete"
)

var stageProgress = map[string]int{
	StageChecking:    10,
	StageGenerating:  30,
	StageImaging:     60,
	StageTranslating: 80,
	StageUploading:   90,
	StageComplete:    100,
}

// ProgressFunc receives pipeline progress events. It is advisory and
// best-effort; the pipeline executes identically without one. The
// callback must not panic; the pipeline does not guard against it.
type ProgressFunc func(outbound.ProgressEvent)

// Config holds the pipeline's generation parameters
type Config struct {
	TargetLanguages []recipe.Language
	ImageCount      int
	DefaultModel    string
}

// Pipeline orchestrates recipe generation. All collaborators are
// injected; the pipeline owns no ambient state.
type Pipeline struct {
	repo      outbound.RecipeRepository
	client    outbound.GenerationClient
	store     outbound.ObjectStore
	processor outbound.ImageProcessor
	cfg       Config
	logger    *zap.Logger
}

// NewPipeline constructs the pipeline from its collaborators
func NewPipeline(
	repo outbound.RecipeRepository,
	client outbound.GenerationClient,
	store outbound.ObjectStore,
	processor outbound.ImageProcessor,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.ImageCount <= 0 {
		cfg.ImageCount = 3
	}
	return &Pipeline{
		repo:      repo,
		client:    client,
		store:     store,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Execute runs the generation state machine for the named recipe.
//
// Fresh generations are all-or-nothing: nothing is persisted when any
// stage fails. The repair branches out of the database check only ever
// add missing data to an existing document, which is inherently safe.
// Every run ends with exactly one terminal progress event, success or
// error; on error the human-readable message never carries raw
// upstream content.
func (p *Pipeline) Execute(ctx context.Context, name, model string, onProgress ProgressFunc) (*recipe.Document, error) {
	if model == "" {
		model = p.cfg.DefaultModel
	}
	run := &runReporter{onProgress: onProgress}

	run.stage(StageChecking)
	normalized := recipe.NormalizeName(name)
	doc, err := p.repo.FindByName(ctx, normalized)
	if err != nil {
		return nil, run.fail("could not check for an existing recipe", err)
	}

	if doc != nil {
		return p.repair(ctx, run, normalized, doc, model)
	}

	run.stage(StageGenerating)
	source, err := p.generateSource(ctx, name, model)
	if err != nil {
		return nil, run.fail("recipe generation failed", err)
	}

	run.stage(StageImaging)
	images, err := p.generateImages(ctx, normalized, source, generatorVersion)
	if err != nil {
		return nil, run.fail("image generation failed", err)
	}

	run.stage(StageTranslating)
	translations, err := p.translateAll(ctx, source, p.cfg.TargetLanguages, model)
	if err != nil {
		return nil, run.fail("translation failed", err)
	}

	newDoc := recipe.NewDocument(source, currentVersion())
	newDoc.Images = images
	for lang, localized := range translations {
		newDoc.Languages[lang] = localized
	}

	run.stage(StageUploading)
	if err := p.repo.Save(ctx, newDoc); err != nil {
		return nil, run.fail("could not store the recipe", err)
	}

	p.logger.Info("recipe generated",
		zap.String("name", normalized),
		zap.String("id", newDoc.ID.String()),
		zap.Int("images", len(newDoc.Images)),
		zap.Int("languages", len(newDoc.Languages)))

	run.success(newDoc)
	return newDoc, nil
}

// repair handles the short-circuit branches for an existing document:
// return it untouched when complete and current, or backfill exactly
// the missing piece (images, then translations) without regenerating
// anything that already exists.
func (p *Pipeline) repair(ctx context.Context, run *runReporter, normalized string, doc *recipe.Document, model string) (*recipe.Document, error) {
	missing := doc.MissingLanguages(p.cfg.TargetLanguages)

	if len(doc.Images) > 0 && len(missing) == 0 && doc.IsCurrent(currentVersion()) {
		p.logger.Debug("recipe already generated", zap.String("name", normalized))
		run.success(doc)
		return doc, nil
	}

	if len(doc.Images) == 0 {
		source := doc.Source()
		if source == nil {
			return nil, run.fail("stored recipe is missing its source language",
				errors.NewValidationError("document has no source-language recipe"))
		}

		run.stage(StageImaging)
		images, err := p.generateImages(ctx, normalized, source, doc.Version.Generator)
		if err != nil {
			return nil, run.fail("image generation failed", err)
		}

		updated, err := p.repo.Update(ctx, doc.ID, recipe.DocumentPatch{Images: &images})
		if err != nil {
			return nil, run.fail("could not store the generated images", err)
		}

		p.logger.Info("backfilled missing recipe images",
			zap.String("name", normalized),
			zap.Int("images", len(images)))
		run.success(updated)
		return updated, nil
	}

	if len(missing) > 0 {
		source := doc.Source()
		if source == nil {
			return nil, run.fail("stored recipe is missing its source language",
				errors.NewValidationError("document has no source-language recipe"))
		}

		run.stage(StageTranslating)
		translations, err := p.translateAll(ctx, source, missing, model)
		if err != nil {
			return nil, run.fail("translation failed", err)
		}

		updated, err := p.repo.Update(ctx, doc.ID, recipe.DocumentPatch{Languages: translations})
		if err != nil {
			return nil, run.fail("could not store the translations", err)
		}

		p.logger.Info("backfilled missing translations",
			zap.String("name", normalized),
			zap.Int("languages", len(translations)))
		run.success(updated)
		return updated, nil
	}

	// Complete but produced by older prompt versions: regenerate the
	// content in place, keeping the document's identity. The document
	// is mutated, never replaced, so the name index stays valid.
	return p.regenerate(ctx, run, normalized, doc, model)
}

func (p *Pipeline) regenerate(ctx context.Context, run *runReporter, normalized string, doc *recipe.Document, model string) (*recipe.Document, error) {
	p.logger.Info("regenerating stale recipe content",
		zap.String("name", normalized),
		zap.String("generator", doc.Version.Generator),
		zap.String("translator", doc.Version.Translator))

	source := doc.Source()
	if source == nil {
		return nil, run.fail("stored recipe is missing its source language",
			errors.NewValidationError("document has no source-language recipe"))
	}

	run.stage(StageGenerating)
	fresh, err := p.generateSource(ctx, source.Title, model)
	if err != nil {
		return nil, run.fail("recipe generation failed", err)
	}

	run.stage(StageImaging)
	images, err := p.generateImages(ctx, normalized, fresh, generatorVersion)
	if err != nil {
		return nil, run.fail("image generation failed", err)
	}

	run.stage(StageTranslating)
	translations, err := p.translateAll(ctx, fresh, p.cfg.TargetLanguages, model)
	if err != nil {
		return nil, run.fail("translation failed", err)
	}

	languages := map[recipe.Language]*recipe.LocalizedRecipe{recipe.SourceLanguage: fresh}
	for lang, localized := range translations {
		languages[lang] = localized
	}
	version := currentVersion()

	run.stage(StageUploading)
	updated, err := p.repo.Update(ctx, doc.ID, recipe.DocumentPatch{
		Languages: languages,
		Images:    &images,
		Version:   &version,
	})
	if err != nil {
		return nil, run.fail("could not store the recipe", err)
	}

	run.success(updated)
	return updated, nil
}

// generateSource runs the structured-output completion and parses the
// source-language recipe from it.
func (p *Pipeline) generateSource(ctx context.Context, name, model string) (*recipe.LocalizedRecipe, error) {
	result, err := p.client.GenerateText(ctx, recipeMessages(name), model, recipeSchema)
	if err != nil {
		return nil, err
	}

	var localized recipe.LocalizedRecipe
	if err := json.Unmarshal([]byte(result.Content), &localized); err != nil {
		return nil, errors.NewUpstreamError("text generation",
			fmt.Errorf("response is not a valid recipe document: %w", err))
	}
	if localized.Title == "" || len(localized.Instructions) == 0 {
		return nil, errors.NewUpstreamError("text generation",
			fmt.Errorf("response is missing required recipe fields"))
	}

	// The generation contract enforces the shape; validate defensively
	// and log soft violations rather than failing the run
	if err := localized.Validate(); err != nil {
		p.logger.Warn("generated recipe violates content constraints",
			zap.String("title", localized.Title),
			zap.Error(err))
	}

	p.logger.Debug("source recipe generated",
		zap.String("model", result.ModelUsed),
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens))

	return &localized, nil
}

// generateImages produces, transcodes, and uploads the recipe's images,
// returning the resulting storage paths. An upload failure aborts; a
// transcoding failure never does.
func (p *Pipeline) generateImages(ctx context.Context, normalized string, source *recipe.LocalizedRecipe, contentVersion string) ([]string, error) {
	buffers, err := p.client.GenerateImages(ctx, imagePrompt(source.Title, source.Description), p.cfg.ImageCount)
	if err != nil {
		return nil, err
	}
	if len(buffers) < p.cfg.ImageCount {
		p.logger.Warn("image generation returned fewer images than requested",
			zap.String("name", normalized),
			zap.Int("requested", p.cfg.ImageCount),
			zap.Int("received", len(buffers)))
	}

	paths := make([]string, 0, len(buffers))
	for i, buf := range buffers {
		data, contentType := p.processor.Process(buf)

		key := fmt.Sprintf("recipes/%s/%s/%d%s", normalized, contentVersion, i, extensionFor(contentType))
		path, err := p.store.Upload(ctx, key, data, contentType)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// translateAll fans out one translation call per target language. The
// calls are independent, so they run concurrently; a single failure
// fails the whole join and nothing partial is returned.
func (p *Pipeline) translateAll(ctx context.Context, source *recipe.LocalizedRecipe, targets []recipe.Language, model string) (map[recipe.Language]*recipe.LocalizedRecipe, error) {
	if len(targets) == 0 {
		return map[recipe.Language]*recipe.LocalizedRecipe{}, nil
	}

	payload, err := json.Marshal(extractTranslatable(source))
	if err != nil {
		return nil, errors.Wrap(err, "could not project translatable fields")
	}

	results := make(map[recipe.Language]*recipe.LocalizedRecipe, len(targets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range targets {
		lang := lang
		g.Go(func() error {
			result, err := p.client.GenerateText(gctx, translationMessages(lang, payload), model, translationSchema)
			if err != nil {
				return err
			}

			var translated translatablePayload
			if err := json.Unmarshal([]byte(result.Content), &translated); err != nil {
				return errors.NewUpstreamError("translation",
					fmt.Errorf("response for %q is not a valid translation: %w", lang, err))
			}

			mu.Lock()
			results[lang] = mergeTranslated(source, translated)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// runReporter emits the progress events for one Execute run
type runReporter struct {
	onProgress ProgressFunc
}

func (r *runReporter) emit(event outbound.ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(event)
	}
}

func (r *runReporter) stage(stage string) {
	r.emit(outbound.ProgressEvent{
		Stage:    stage,
		Progress: stageProgress[stage],
		Status:   outbound.StatusRunning,
	})
}

func (r *runReporter) success(doc *recipe.Document) {
	r.emit(outbound.ProgressEvent{
		Stage:    StageComplete,
		Progress: stageProgress[StageComplete],
		Status:   outbound.StatusSuccess,
		Payload:  doc,
	})
}

// fail emits the single terminal error event and returns the original
// error for the synchronous caller.
func (r *runReporter) fail(message string, err error) error {
	r.emit(outbound.ProgressEvent{
		Stage:    StageComplete,
		Progress: stageProgress[StageComplete],
		Status:   outbound.StatusError,
		Message:  message,
	})
	return err
}
