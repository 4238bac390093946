package generation

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// Manager launches fire-and-forget generation tasks and bridges their
// progress onto the broker. Task ids are the only handle callers get
// back; there is no cancellation or result retrieval beyond the
// progress stream.
type Manager struct {
	pipeline *Pipeline
	broker   outbound.ProgressBroker
	logger   *zap.Logger
}

// NewManager constructs a task manager over the pipeline and broker
func NewManager(pipeline *Pipeline, broker outbound.ProgressBroker, logger *zap.Logger) *Manager {
	return &Manager{pipeline: pipeline, broker: broker, logger: logger}
}

// StartGeneration kicks off a detached generation run and returns its
// task id immediately. The run is deliberately decoupled from the
// caller's request lifetime: the HTTP request that started it may end
// long before the pipeline does, so the goroutine runs on a fresh
// background context.
func (m *Manager) StartGeneration(name, model string) string {
	taskID := uuid.New().String()

	go m.run(taskID, name, model)

	m.logger.Info("generation task started",
		zap.String("task_id", taskID),
		zap.String("name", name))
	return taskID
}

func (m *Manager) run(taskID, name, model string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("generation task panicked",
				zap.String("task_id", taskID),
				zap.Any("panic", r))
			m.publish(ctx, taskID, outbound.ProgressEvent{
				Stage:    StageComplete,
				Progress: stageProgress[StageComplete],
				Status:   outbound.StatusError,
				Message:  "recipe generation failed unexpectedly",
			})
		}
	}()

	_, err := m.pipeline.Execute(ctx, name, model, func(event outbound.ProgressEvent) {
		m.publish(ctx, taskID, event)
	})
	if err != nil {
		// The pipeline already published the terminal error event
		m.logger.Error("generation task failed",
			zap.String("task_id", taskID),
			zap.String("name", name),
			zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, taskID string, event outbound.ProgressEvent) {
	if err := m.broker.Publish(ctx, taskID, event); err != nil {
		m.logger.Warn("progress event dropped",
			zap.String("task_id", taskID),
			zap.String("stage", event.Stage),
			zap.Error(err))
	}
}
