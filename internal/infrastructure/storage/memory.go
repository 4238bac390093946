package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// MemoryStore keeps uploaded objects in process memory. Test and local
// development adapter.
type MemoryStore struct {
	objects map[string]memoryObject
	baseURL string
	mu      sync.RWMutex
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory object store
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "https://media.invalid"
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: baseURL,
	}
}

// Upload stores bytes under key and returns the storage path
func (m *MemoryStore) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = memoryObject{data: stored, contentType: contentType}
	return key, nil
}

// SignURL returns a fake signed URL, or "" for unknown paths
func (m *MemoryStore) SignURL(_ context.Context, storagePath string, ttl time.Duration) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.objects[storagePath]; !ok {
		return ""
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, storagePath, int64(ttl.Seconds()))
}

// Get returns a stored object's bytes, for assertions in tests
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

var _ outbound.ObjectStore = (*MemoryStore)(nil)
