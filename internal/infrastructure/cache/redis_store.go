package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/infrastructure/config"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// RedisStore is the shared network-backed cache tier. It wraps the
// client with a circuit breaker so a struggling Redis degrades into
// fast misses instead of stalled requests.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	logger  *zap.Logger
	metrics *RedisMetrics
	breaker *CircuitBreaker
}

// RedisMetrics tracks Redis cache performance
type RedisMetrics struct {
	TotalCommands int64 `json:"total_commands"`
	FailedOps     int64 `json:"failed_ops"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	mu            sync.Mutex
}

// CircuitState represents circuit breaker states
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker trips after consecutive failures and re-probes after a
// cool-down period.
type CircuitBreaker struct {
	maxFailures     int
	timeout         time.Duration
	failures        int
	lastFailureTime time.Time
	state           CircuitState
	mu              sync.Mutex
}

// AllowRequest checks if requests are allowed based on circuit state
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailureTime = time.Now()
	if cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// NewRedisStore creates the Redis cache backend
func NewRedisStore(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		logger:  logger,
		metrics: &RedisMetrics{},
		breaker: &CircuitBreaker{
			maxFailures: 5,
			timeout:     time.Second * 30,
			state:       CircuitClosed,
		},
	}
}

// NewRedisClient creates a Redis connection from configuration
func NewRedisClient(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr()},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Name identifies the backend in logs
func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(key string) string { return r.prefix + key }

var errCircuitOpen = fmt.Errorf("redis circuit breaker is open")

// Get retrieves a value with circuit breaker protection
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if !r.breaker.AllowRequest() {
		r.metrics.miss()
		return nil, errors.NewCacheError("redis", errCircuitOpen)
	}

	result, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		r.metrics.miss()
		r.breaker.RecordSuccess()
		return nil, ErrKeyNotFound
	}
	if err != nil {
		r.breaker.RecordFailure()
		r.metrics.fail()
		r.logger.Error("redis GET failed", zap.String("key", key), zap.Error(err))
		return nil, errors.NewCacheError("redis", err)
	}

	r.breaker.RecordSuccess()
	r.metrics.hit()
	return result, nil
}

// Set stores a value with TTL
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !r.breaker.AllowRequest() {
		return errors.NewCacheError("redis", errCircuitOpen)
	}

	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.breaker.RecordFailure()
		r.metrics.fail()
		r.logger.Error("redis SET failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("redis", err)
	}

	r.breaker.RecordSuccess()
	return nil
}

// SetNX sets a key only if it does not exist. Exposed so deployments
// can layer a distributed lock over the cache; the pipeline itself does
// not take one.
func (r *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if !r.breaker.AllowRequest() {
		return false, errors.NewCacheError("redis", errCircuitOpen)
	}

	ok, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		r.breaker.RecordFailure()
		r.metrics.fail()
		return false, errors.NewCacheError("redis", err)
	}
	r.breaker.RecordSuccess()
	return ok, nil
}

// Delete removes keys
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if !r.breaker.AllowRequest() {
		return errors.NewCacheError("redis", errCircuitOpen)
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}

	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		r.breaker.RecordFailure()
		r.metrics.fail()
		r.logger.Error("redis DEL failed", zap.Strings("keys", keys), zap.Error(err))
		return errors.NewCacheError("redis", err)
	}

	r.breaker.RecordSuccess()
	return nil
}

// Clear removes every key under this store's prefix. Scoped to the
// prefix so a shared Redis database is not flushed wholesale.
func (r *RedisStore) Clear(ctx context.Context) error {
	if !r.breaker.AllowRequest() {
		return errors.NewCacheError("redis", errCircuitOpen)
	}

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.breaker.RecordFailure()
		return errors.NewCacheError("redis", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			r.breaker.RecordFailure()
			return errors.NewCacheError("redis", err)
		}
	}

	r.breaker.RecordSuccess()
	return nil
}

// Has reports whether the key exists
func (r *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	if !r.breaker.AllowRequest() {
		return false, errors.NewCacheError("redis", errCircuitOpen)
	}

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		r.breaker.RecordFailure()
		return false, errors.NewCacheError("redis", err)
	}
	r.breaker.RecordSuccess()
	return n > 0, nil
}

// Metrics returns a snapshot of the store's counters
func (r *RedisStore) Metrics() RedisMetrics {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	return RedisMetrics{
		TotalCommands: r.metrics.TotalCommands,
		FailedOps:     r.metrics.FailedOps,
		CacheHits:     r.metrics.CacheHits,
		CacheMisses:   r.metrics.CacheMisses,
	}
}

func (m *RedisMetrics) hit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalCommands++
	m.CacheHits++
}

func (m *RedisMetrics) miss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalCommands++
	m.CacheMisses++
}

func (m *RedisMetrics) fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalCommands++
	m.FailedOps++
}

var _ outbound.CacheStore = (*RedisStore)(nil)
