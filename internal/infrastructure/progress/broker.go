// Package progress provides the publish/subscribe channels that stream
// pipeline progress events to remote subscribers: an in-process broker
// and a Redis pub/sub broker for multi-instance deployments. Channels
// are live streams, not durable logs: a subscriber that connects after
// a publish misses it, and delivery is at-most-once per subscriber.
package progress

import (
	"context"
	"sync"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// MemoryBroker broadcasts events to in-process subscribers per task id
type MemoryBroker struct {
	subscribers map[string]map[int]func(outbound.ProgressEvent)
	nextID      int
	mu          sync.Mutex
}

// NewMemoryBroker creates an empty in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subscribers: make(map[string]map[int]func(outbound.ProgressEvent)),
	}
}

// Publish broadcasts the event to every current subscriber of taskID.
// Fire-and-forget: no buffering, no acknowledgment.
func (b *MemoryBroker) Publish(_ context.Context, taskID string, event outbound.ProgressEvent) error {
	b.mu.Lock()
	fns := make([]func(outbound.ProgressEvent), 0, len(b.subscribers[taskID]))
	for _, fn := range b.subscribers[taskID] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	// Callbacks run outside the lock so a slow subscriber cannot block
	// publishers or other subscriptions
	for _, fn := range fns {
		fn(event)
	}
	return nil
}

// Subscribe registers fn for every subsequent publish on taskID
func (b *MemoryBroker) Subscribe(_ context.Context, taskID string, fn func(outbound.ProgressEvent)) (outbound.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[taskID] == nil {
		b.subscribers[taskID] = make(map[int]func(outbound.ProgressEvent))
	}
	id := b.nextID
	b.nextID++
	b.subscribers[taskID][id] = fn

	return &memorySubscription{broker: b, taskID: taskID, id: id}, nil
}

type memorySubscription struct {
	broker *MemoryBroker
	taskID string
	id     int
	once   sync.Once
}

// Close releases the subscriber's registration
func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		delete(s.broker.subscribers[s.taskID], s.id)
		if len(s.broker.subscribers[s.taskID]) == 0 {
			delete(s.broker.subscribers, s.taskID)
		}
	})
	return nil
}

var _ outbound.ProgressBroker = (*MemoryBroker)(nil)
