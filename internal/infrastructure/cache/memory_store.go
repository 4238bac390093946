// Package cache provides the layered caching infrastructure: individual
// key-value backends (process memory, local filesystem, Redis) and the
// multi-tier composer that turns them into one logical cache.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// ErrKeyNotFound is the sentinel miss error shared by every backend
var ErrKeyNotFound = errors.NewAppError(errors.CodeNotFound, "key not found in cache", "")

// MemoryStore is a thread-safe in-memory backend with TTL expiry and
// LRU eviction.
type MemoryStore struct {
	items   map[string]*memoryItem
	lruList *lruList
	maxSize int
	mu      sync.Mutex
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time
	lruNode   *lruNode
}

// lruList implements a doubly-linked list for LRU tracking
type lruList struct {
	head *lruNode
	tail *lruNode
}

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

func newLRUList() *lruList {
	l := &lruList{head: &lruNode{}, tail: &lruNode{}}
	l.head.next = l.tail
	l.tail.prev = l.head
	return l
}

// NewMemoryStore creates a memory backend with the given capacity
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		items:   make(map[string]*memoryItem),
		lruList: newLRUList(),
		maxSize: maxSize,
	}
}

// Name identifies the backend in logs
func (m *MemoryStore) Name() string { return "memory" }

// Get retrieves a value, expiring it lazily when its TTL has passed
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		m.deleteItem(key, item)
		return nil, ErrKeyNotFound
	}

	m.moveToFront(item.lruNode)

	// Copy so callers cannot mutate the cached bytes
	out := make([]byte, len(item.data))
	copy(out, item.data)
	return out, nil
}

// Set stores a value with TTL. A zero TTL means no expiry.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	data := make([]byte, len(value))
	copy(data, value)

	if existing, ok := m.items[key]; ok {
		existing.data = data
		existing.expiresAt = expiresAt
		m.moveToFront(existing.lruNode)
		return nil
	}

	node := &lruNode{key: key}
	m.items[key] = &memoryItem{data: data, expiresAt: expiresAt, lruNode: node}
	m.addToFront(node)
	m.evictIfNecessary()
	return nil
}

// Delete removes keys from the store
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if item, ok := m.items[key]; ok {
			m.deleteItem(key, item)
		}
	}
	return nil
}

// Clear removes every entry
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*memoryItem)
	m.lruList = newLRUList()
	return nil
}

// Has reports whether a live entry exists for key
func (m *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err == ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

// Size returns the current number of entries
func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryStore) deleteItem(key string, item *memoryItem) {
	delete(m.items, key)
	m.removeFromList(item.lruNode)
}

func (m *MemoryStore) evictIfNecessary() {
	for len(m.items) > m.maxSize {
		lru := m.lruList.tail.prev
		if lru == m.lruList.head {
			return
		}
		m.deleteItem(lru.key, m.items[lru.key])
	}
}

func (m *MemoryStore) addToFront(node *lruNode) {
	node.prev = m.lruList.head
	node.next = m.lruList.head.next
	m.lruList.head.next.prev = node
	m.lruList.head.next = node
}

func (m *MemoryStore) removeFromList(node *lruNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (m *MemoryStore) moveToFront(node *lruNode) {
	m.removeFromList(node)
	m.addToFront(node)
}

var _ outbound.CacheStore = (*MemoryStore)(nil)
