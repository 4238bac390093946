package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/application/generation"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// GenerationHandlers serves the recipe generation endpoints: task
// kickoff and the server-sent progress stream.
type GenerationHandlers struct {
	manager           *generation.Manager
	broker            outbound.ProgressBroker
	keepAliveInterval time.Duration
	validate          *validator.Validate
	logger            *zap.Logger
}

// NewGenerationHandlers creates the generation handlers
func NewGenerationHandlers(
	manager *generation.Manager,
	broker outbound.ProgressBroker,
	keepAliveInterval time.Duration,
	logger *zap.Logger,
) *GenerationHandlers {
	if keepAliveInterval <= 0 {
		keepAliveInterval = 15 * time.Second
	}
	return &GenerationHandlers{
		manager:           manager,
		broker:            broker,
		keepAliveInterval: keepAliveInterval,
		validate:          validator.New(),
		logger:            logger,
	}
}

type generateRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Model string `json:"model" validate:"omitempty,max=64"`
}

// Generate handles POST /api/v1/recipes/generate. The generation runs
// detached; the response carries only the task id for the progress
// stream.
func (h *GenerationHandlers) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewValidationError("request body must be JSON with a recipe name"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(c, errors.NewValidationError(err.Error()))
		return
	}

	taskID := h.manager.StartGeneration(req.Name, req.Model)
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}

// Events handles GET /api/v1/recipes/generate/:taskID/events as a
// server-sent event stream. Events already published before the
// subscription miss the stream; clients connect before or immediately
// after kickoff. The stream closes after the terminal event, on client
// disconnect, or when a keep-alive write fails.
func (h *GenerationHandlers) Events(c *gin.Context) {
	taskID := c.Param("taskID")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondError(c, errors.NewInternalError("streaming unsupported"))
		return
	}

	// Buffered so a slow write on our side never blocks the broker's
	// delivery goroutine
	events := make(chan outbound.ProgressEvent, 16)
	sub, err := h.broker.Subscribe(c.Request.Context(), taskID, func(event outbound.ProgressEvent) {
		select {
		case events <- event:
		default:
			h.logger.Warn("progress stream backlogged, dropping event",
				zap.String("task_id", taskID),
				zap.String("stage", event.Stage))
		}
	})
	if err != nil {
		respondError(c, errors.Wrap(err, "could not subscribe to progress"))
		return
	}
	defer sub.Close()

	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return

		case <-keepAlive.C:
			if _, err := fmt.Fprint(c.Writer, ": keep-alive\n\n"); err != nil {
				h.logger.Debug("progress stream closed by client",
					zap.String("task_id", taskID))
				return
			}
			flusher.Flush()

		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("could not encode progress event",
					zap.String("task_id", taskID),
					zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()

			if event.Terminal() {
				return
			}
		}
	}
}
