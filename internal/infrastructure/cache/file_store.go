package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// FileStore is a local-filesystem backend. Each entry lives in its own
// file named by the hash of the key, wrapped in a small envelope that
// records the expiry. It survives process restarts, which makes it the
// warm middle tier between process memory and the shared Redis tier.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// fileEnvelope wraps the stored value with its metadata
type fileEnvelope struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// NewFileStore creates a filesystem backend rooted at dir
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewCacheError("file", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Name identifies the backend in logs
func (f *FileStore) Name() string { return "file" }

func (f *FileStore) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".cache")
}

// Get reads an entry, removing it when expired
func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.pathFor(key))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.NewCacheError("file", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt entry reads as a miss; drop it so it is not re-read
		f.logger.Warn("dropping corrupt file cache entry", zap.String("key", key), zap.Error(err))
		_ = os.Remove(f.pathFor(key))
		return nil, ErrKeyNotFound
	}

	if !env.ExpiresAt.IsZero() && time.Now().After(env.ExpiresAt) {
		_ = os.Remove(f.pathFor(key))
		return nil, ErrKeyNotFound
	}

	return env.Value, nil
}

// Set writes an entry atomically via rename
func (f *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	env := fileEnvelope{Key: key, Value: value}
	if ttl > 0 {
		env.ExpiresAt = time.Now().Add(ttl)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return errors.NewCacheError("file", err)
	}

	path := f.pathFor(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewCacheError("file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.NewCacheError("file", err)
	}
	return nil
}

// Delete removes entries for the given keys
func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(f.pathFor(key)); err != nil && !os.IsNotExist(err) {
			return errors.NewCacheError("file", err)
		}
	}
	return nil
}

// Clear removes every cache file under the root
func (f *FileStore) Clear(_ context.Context) error {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.cache"))
	if err != nil {
		return errors.NewCacheError("file", err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.NewCacheError("file", err)
		}
	}
	return nil
}

// Has reports whether a live entry exists for key
func (f *FileStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := f.Get(ctx, key)
	if err == ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

// SweepExpired removes every expired entry and returns how many it
// dropped. Called periodically from the container's sweep loop.
func (f *FileStore) SweepExpired() int {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.cache"))
	if err != nil {
		return 0
	}

	removed := 0
	now := time.Now()
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var env fileEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = os.Remove(path)
			removed++
			continue
		}
		if !env.ExpiresAt.IsZero() && now.After(env.ExpiresAt) {
			_ = os.Remove(path)
			removed++
		}
	}
	return removed
}

var _ outbound.CacheStore = (*FileStore)(nil)
