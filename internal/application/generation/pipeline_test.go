package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/infrastructure/persistence/memory"
	"github.com/mealforge/mealforge/internal/infrastructure/storage"
	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// fakeClient scripts generation responses and counts calls. The
// translation fan-out calls it concurrently, so the counter is locked.
type fakeClient struct {
	mu           sync.Mutex
	textCalls    int
	imageCalls   int
	textErr      error
	translateErr error
	imageErr     error
	imageCount   int
}

func (f *fakeClient) GenerateText(_ context.Context, messages []outbound.ChatMessage, model string, schema []byte) (*outbound.TextResult, error) {
	f.mu.Lock()
	f.textCalls++
	f.mu.Unlock()

	if string(schema) == string(translationSchema) {
		if f.translateErr != nil {
			return nil, f.translateErr
		}
		// Echo the payload back with a marker so merge behavior is
		// observable per language
		var payload translatablePayload
		if err := json.Unmarshal([]byte(messages[1].Content), &payload); err != nil {
			return nil, err
		}
		lang := "xx"
		if idx := strings.Index(messages[0].Content, `ISO code "`); idx >= 0 {
			lang = messages[0].Content[idx+10 : idx+12]
		}
		payload.Title = "[" + lang + "] " + payload.Title
		payload.Description = "[" + lang + "] " + payload.Description
		out, _ := json.Marshal(payload)
		return &outbound.TextResult{Content: string(out), ModelUsed: model}, nil
	}

	if f.textErr != nil {
		return nil, f.textErr
	}
	source := recipe.LocalizedRecipe{
		Title:       strings.TrimPrefix(messages[1].Content, "Create a complete recipe for: "),
		Description: "A bright, balanced dish built around simple staples.",
		Category:    "main",
		Difficulty:  "easy",
		PrepTime:    10,
		CookTime:    20,
		Calories:    430,
		Servings:    2,
		Ingredients: []recipe.Ingredient{{Quantity: 1, Unit: recipe.UnitPiece, Name: "shallot", Preparation: "minced"}},
		Instructions: []recipe.InstructionStep{
			{Order: 1, Description: "Mince the shallot."},
			{Order: 2, Description: "Cook everything together."},
		},
	}
	out, _ := json.Marshal(source)
	return &outbound.TextResult{Content: string(out), ModelUsed: model}, nil
}

func (f *fakeClient) GenerateImages(_ context.Context, prompt string, count int) ([][]byte, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	n := count
	if f.imageCount > 0 {
		n = f.imageCount
	}
	buffers := make([][]byte, n)
	for i := range buffers {
		buffers[i] = []byte(fmt.Sprintf("image-%d", i))
	}
	return buffers, nil
}

// passthroughProcessor skips transcoding so tests see the raw bytes
type passthroughProcessor struct{}

func (passthroughProcessor) Process(data []byte) ([]byte, string) { return data, "image/jpeg" }

type pipelineFixture struct {
	pipeline *Pipeline
	repo     *memory.Repository
	client   *fakeClient
	store    *storage.MemoryStore
	events   []outbound.ProgressEvent
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		repo:   memory.NewRepository(),
		client: &fakeClient{},
		store:  storage.NewMemoryStore(""),
	}
	f.pipeline = NewPipeline(f.repo, f.client, f.store, passthroughProcessor{}, Config{
		TargetLanguages: []recipe.Language{recipe.LanguageChinese, recipe.LanguageJapanese},
		ImageCount:      2,
		DefaultModel:    "test-model",
	}, zap.NewNop())
	return f
}

func (f *pipelineFixture) execute(t *testing.T, name string) (*recipe.Document, error) {
	t.Helper()
	f.events = nil
	return f.pipeline.Execute(context.Background(), name, "", func(e outbound.ProgressEvent) {
		f.events = append(f.events, e)
	})
}

func (f *pipelineFixture) stages() []string {
	stages := make([]string, len(f.events))
	for i, e := range f.events {
		stages[i] = e.Stage
	}
	return stages
}

func TestPipelineFreshGeneration(t *testing.T) {
	f := newPipelineFixture(t)

	doc, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, []string{
		StageChecking,
		StageGenerating,
		StageImaging,
		StageTranslating,
		StageUploading,
		StageComplete,
	}, f.stages())

	last := f.events[len(f.events)-1]
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, outbound.StatusSuccess, last.Status)
	assert.NotNil(t, last.Payload)

	// Full document: source plus both translations, current versions
	assert.Equal(t, "Lemon Risotto", doc.Source().Title)
	assert.True(t, doc.HasLanguage(recipe.LanguageChinese))
	assert.True(t, doc.HasLanguage(recipe.LanguageJapanese))
	assert.True(t, doc.IsCurrent(currentVersion()))
	require.Len(t, doc.Images, 2)

	// Image paths are keyed by normalized name and generator version
	assert.Equal(t, "recipes/lemon-risotto/gen-v2/0.jpg", doc.Images[0])
	_, ok := f.store.Get(doc.Images[0])
	assert.True(t, ok)

	// And it was persisted under its normalized name
	stored, err := f.repo.FindByName(context.Background(), "lemon-risotto")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, doc.ID, stored.ID)

	// 1 source generation + 2 translations
	assert.Equal(t, 3, f.client.textCalls)
	assert.Equal(t, 1, f.client.imageCalls)
}

func TestPipelineProgressIsMonotonic(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	previous := -1
	for _, event := range f.events {
		assert.GreaterOrEqual(t, event.Progress, previous)
		previous = event.Progress
	}
	assert.Equal(t, 100, previous)
}

func TestPipelineTranslationNumericPassthrough(t *testing.T) {
	f := newPipelineFixture(t)

	doc, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	zh := doc.Languages[recipe.LanguageChinese]
	require.NotNil(t, zh)
	assert.True(t, strings.HasPrefix(zh.Title, "[zh] "))
	assert.Equal(t, 10, zh.PrepTime)
	assert.Equal(t, 20, zh.CookTime)
	assert.Equal(t, 430, zh.Calories)
	assert.Equal(t, 2, zh.Servings)
	require.Len(t, zh.Ingredients, 1)
	assert.Equal(t, 1.0, zh.Ingredients[0].Quantity)
	assert.Equal(t, recipe.UnitPiece, zh.Ingredients[0].Unit)
	require.Len(t, zh.Instructions, 2)
	assert.Equal(t, 1, zh.Instructions[0].Order)
}

func TestPipelineIdempotentFastPath(t *testing.T) {
	f := newPipelineFixture(t)

	first, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	f.client.textCalls = 0
	f.client.imageCalls = 0

	// Same dish, different spelling: must resolve to the same document
	second, err := f.execute(t, "lemon   RISOTTO!")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// No upstream work at all
	assert.Zero(t, f.client.textCalls)
	assert.Zero(t, f.client.imageCalls)

	assert.Equal(t, []string{StageChecking, StageComplete}, f.stages())
	assert.Equal(t, outbound.StatusSuccess, f.events[len(f.events)-1].Status)
}

func TestPipelineImageRepair(t *testing.T) {
	f := newPipelineFixture(t)

	first, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	// Simulate a run that lost its images
	empty := []string{}
	_, err = f.repo.Update(context.Background(), first.ID, recipe.DocumentPatch{Images: &empty})
	require.NoError(t, err)

	f.client.textCalls = 0
	f.client.imageCalls = 0

	repaired, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	assert.Equal(t, first.ID, repaired.ID)
	assert.Len(t, repaired.Images, 2)

	// Only images were regenerated
	assert.Zero(t, f.client.textCalls)
	assert.Equal(t, 1, f.client.imageCalls)
	assert.Equal(t, []string{StageChecking, StageImaging, StageComplete}, f.stages())
}

func TestPipelineTranslationRepair(t *testing.T) {
	f := newPipelineFixture(t)

	first, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	// Drop one translation, as if a target language was added later
	stored, err := f.repo.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	languages := map[recipe.Language]*recipe.LocalizedRecipe{
		recipe.SourceLanguage:   stored.Source(),
		recipe.LanguageChinese:  stored.Languages[recipe.LanguageChinese],
		recipe.LanguageJapanese: nil,
	}
	_, err = f.repo.Update(context.Background(), first.ID, recipe.DocumentPatch{Languages: languages})
	require.NoError(t, err)

	f.client.textCalls = 0
	f.client.imageCalls = 0

	repaired, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	assert.Equal(t, first.ID, repaired.ID)
	assert.True(t, repaired.HasLanguage(recipe.LanguageJapanese))
	assert.True(t, strings.HasPrefix(repaired.Languages[recipe.LanguageJapanese].Title, "[ja] "))

	// Exactly one translation call, no image work
	assert.Equal(t, 1, f.client.textCalls)
	assert.Zero(t, f.client.imageCalls)
	assert.Equal(t, []string{StageChecking, StageTranslating, StageComplete}, f.stages())
}

func TestPipelineStaleDocumentRegeneratesInPlace(t *testing.T) {
	f := newPipelineFixture(t)

	first, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	stale := recipe.ContentVersion{Generator: "gen-v1", Translator: "tr-v1"}
	_, err = f.repo.Update(context.Background(), first.ID, recipe.DocumentPatch{Version: &stale})
	require.NoError(t, err)

	regenerated, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)

	// Same identity, fresh content versions
	assert.Equal(t, first.ID, regenerated.ID)
	assert.True(t, regenerated.IsCurrent(currentVersion()))

	docs, err := f.repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestPipelineGenerationFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.client.textErr = fmt.Errorf("upstream exploded")

	doc, err := f.execute(t, "Lemon Risotto")
	require.Error(t, err)
	assert.Nil(t, doc)

	// Exactly one terminal event, error status, 100 percent
	var terminals []outbound.ProgressEvent
	for _, e := range f.events {
		if e.Terminal() {
			terminals = append(terminals, e)
		}
	}
	require.Len(t, terminals, 1)
	assert.Equal(t, outbound.StatusError, terminals[0].Status)
	assert.Equal(t, 100, terminals[0].Progress)
	assert.Equal(t, "recipe generation failed", terminals[0].Message)

	// Nothing was persisted
	docs, findErr := f.repo.FindAll(context.Background())
	require.NoError(t, findErr)
	assert.Empty(t, docs)
}

func TestPipelineTranslationFailureLeavesNothingBehind(t *testing.T) {
	f := newPipelineFixture(t)
	f.client.translateErr = fmt.Errorf("translator down")

	_, err := f.execute(t, "Lemon Risotto")
	require.Error(t, err)

	docs, findErr := f.repo.FindAll(context.Background())
	require.NoError(t, findErr)
	assert.Empty(t, docs)

	last := f.events[len(f.events)-1]
	assert.Equal(t, outbound.StatusError, last.Status)
	assert.Equal(t, "translation failed", last.Message)
}

func TestPipelinePartialImageResultIsAccepted(t *testing.T) {
	f := newPipelineFixture(t)
	f.client.imageCount = 1 // upstream returned fewer than requested

	doc, err := f.execute(t, "Lemon Risotto")
	require.NoError(t, err)
	assert.Len(t, doc.Images, 1)
}

func TestPipelineRunsWithoutProgressCallback(t *testing.T) {
	f := newPipelineFixture(t)

	doc, err := f.pipeline.Execute(context.Background(), "Lemon Risotto", "", nil)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
