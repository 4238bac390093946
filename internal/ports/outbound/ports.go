// Package outbound defines the interfaces for outbound ports (driven
// adapters): everything the generation pipeline and read path use to
// talk to the world outside the process.
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mealforge/mealforge/internal/domain/recipe"
)

// RecipeRepository defines CRUD over recipe documents plus the
// name→id secondary index used for idempotent lookup by title.
type RecipeRepository interface {
	// FindAll returns every stored document. It fails with a storage
	// error when the backing store is unreachable; no partial results.
	FindAll(ctx context.Context) ([]*recipe.Document, error)

	// FindByID returns the document or nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.Document, error)

	// FindByName resolves via the name index. A missing index entry OR
	// an index entry whose id no longer resolves both read as nil, nil.
	FindByName(ctx context.Context, normalizedName string) (*recipe.Document, error)

	// Save upserts the document by id. The first save for a given
	// normalized source title also writes the name index entry. The two
	// writes are not atomic; Save writes the document first so a crash
	// can only leave a document without an index entry, which reads as
	// not-found and is repaired by the next generation.
	Save(ctx context.Context, doc *recipe.Document) error

	// Update applies merge-patch semantics and returns the fresh document.
	Update(ctx context.Context, id uuid.UUID, patch recipe.DocumentPatch) (*recipe.Document, error)

	// DeleteByID removes the document. Administrative operation; the
	// pipeline never deletes.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// CacheStore is a uniform key-value cache backend. Values are opaque;
// callers serialize. Implementations return ErrCacheMiss-compatible
// errors on miss; the multi-tier composer absorbs backend failures.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) (bool, error)
	Name() string
}

// ObjectStore uploads generated media and signs time-limited URLs.
type ObjectStore interface {
	// Upload stores bytes under key and returns the storage path.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// SignURL converts a storage path into a time-limited fetchable URL.
	// It returns the empty string, never an error, on signing failure;
	// callers treat "" as unavailable.
	SignURL(ctx context.Context, storagePath string, ttl time.Duration) string
}

// ChatMessage is one message of a text-generation conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports upstream token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// TextResult is the structured outcome of a text generation call
type TextResult struct {
	Content   string
	ModelUsed string
	Usage     TokenUsage
}

// GenerationClient is the opaque call into the external text and image
// generation services.
type GenerationClient interface {
	// GenerateText runs a completion constrained to responseSchema (a
	// JSON schema document; nil for free-form). Fails with an upstream
	// error on non-2xx or invalid-shape responses.
	GenerateText(ctx context.Context, messages []ChatMessage, model string, responseSchema []byte) (*TextResult, error)

	// GenerateImages returns up to count image buffers. Individual
	// failures shrink the result; it only errors when the service is
	// entirely unavailable.
	GenerateImages(ctx context.Context, prompt string, count int) ([][]byte, error)
}

// ImageProcessor transcodes raw generated image bytes into a compact
// serving format. Best-effort: failure returns the input unchanged.
type ImageProcessor interface {
	Process(data []byte) (processed []byte, contentType string)
}

// ProgressStatus is the status of a progress event
type ProgressStatus string

const (
	StatusRunning ProgressStatus = "running"
	StatusSuccess ProgressStatus = "success"
	StatusError   ProgressStatus = "error"
)

// ProgressEvent is a discrete stage/percentage/status message describing
// pipeline advancement.
type ProgressEvent struct {
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Status   ProgressStatus `json:"status"`
	Message  string         `json:"message,omitempty"`
	Payload  interface{}    `json:"payload,omitempty"`
}

// Terminal reports whether the event ends the stream
func (e ProgressEvent) Terminal() bool {
	return e.Status == StatusSuccess || e.Status == StatusError
}

// Subscription is a live registration on a progress channel. Close
// releases the subscriber's resources.
type Subscription interface {
	Close() error
}

// ProgressBroker streams progress events per task id. Delivery is
// at-most-once per subscriber per message, live only: subscribers that
// connect after a publish miss it.
type ProgressBroker interface {
	Publish(ctx context.Context, taskID string, event ProgressEvent) error
	Subscribe(ctx context.Context, taskID string, fn func(ProgressEvent)) (Subscription, error)
}
