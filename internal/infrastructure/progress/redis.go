package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// RedisBroker streams progress events over Redis pub/sub so subscribers
// on other instances see them. One channel per task id preserves
// per-task publish order.
type RedisBroker struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisBroker creates a broker over the given Redis client
func NewRedisBroker(client redis.UniversalClient, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func channelFor(taskID string) string {
	return fmt.Sprintf("progress:%s", taskID)
}

// Publish broadcasts the event as JSON. Fire-and-forget: a publish
// with zero subscribers is not an error.
func (b *RedisBroker) Publish(ctx context.Context, taskID string, event outbound.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(taskID), payload).Err(); err != nil {
		b.logger.Warn("progress publish failed",
			zap.String("task_id", taskID),
			zap.Error(err))
		return err
	}
	return nil
}

// Subscribe registers fn for messages on the task's channel. The
// returned subscription must be closed to release the connection.
func (b *RedisBroker) Subscribe(ctx context.Context, taskID string, fn func(outbound.ProgressEvent)) (outbound.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channelFor(taskID))

	// Force the subscription handshake so callers do not miss events
	// published immediately after Subscribe returns
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to progress channel: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var event outbound.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping malformed progress event",
					zap.String("task_id", taskID),
					zap.Error(err))
				continue
			}
			fn(event)
		}
	}()

	return &redisSubscription{pubsub: pubsub}, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
}

// Close tears down the pub/sub connection; the delivery goroutine ends
// when the message channel closes.
func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}

var _ outbound.ProgressBroker = (*RedisBroker)(nil)
