package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

func TestMemoryBrokerPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()

	var received []outbound.ProgressEvent
	sub, err := broker.Subscribe(ctx, "task-1", func(e outbound.ProgressEvent) {
		received = append(received, e)
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{
		Stage: "Checking Database", Progress: 10, Status: outbound.StatusRunning,
	}))
	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{
		Stage: "Complete", Progress: 100, Status: outbound.StatusSuccess,
	}))

	require.Len(t, received, 2)
	assert.Equal(t, 10, received[0].Progress)
	assert.True(t, received[1].Terminal())
}

func TestMemoryBrokerIsolatesTasks(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()

	var other int
	sub, err := broker.Subscribe(ctx, "task-other", func(outbound.ProgressEvent) { other++ })
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{Stage: "Complete"}))
	assert.Zero(t, other)
}

func TestMemoryBrokerPublishWithoutSubscribers(t *testing.T) {
	broker := NewMemoryBroker()
	assert.NoError(t, broker.Publish(context.Background(), "nobody-listening", outbound.ProgressEvent{}))
}

func TestMemoryBrokerCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()

	var count int
	sub, err := broker.Subscribe(ctx, "task-1", func(outbound.ProgressEvent) { count++ })
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{}))
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close()) // idempotent
	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{}))

	assert.Equal(t, 1, count)
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broker := NewRedisBroker(client, zap.NewNop())

	received := make(chan outbound.ProgressEvent, 4)
	sub, err := broker.Subscribe(ctx, "task-1", func(e outbound.ProgressEvent) {
		received <- e
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{
		Stage: "Generating Source Recipe", Progress: 30, Status: outbound.StatusRunning,
	}))

	select {
	case event := <-received:
		assert.Equal(t, "Generating Source Recipe", event.Stage)
		assert.Equal(t, 30, event.Progress)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestRedisBrokerIsolatesTasks(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broker := NewRedisBroker(client, zap.NewNop())

	received := make(chan outbound.ProgressEvent, 4)
	sub, err := broker.Subscribe(ctx, "task-other", func(e outbound.ProgressEvent) {
		received <- e
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, "task-1", outbound.ProgressEvent{Stage: "Complete"}))

	select {
	case <-received:
		t.Fatal("event leaked across task channels")
	case <-time.After(100 * time.Millisecond):
	}
}
