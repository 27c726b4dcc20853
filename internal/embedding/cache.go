package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"episodedb/internal/config"
	"episodedb/internal/logging"
	"episodedb/internal/services"
)

const cacheKeyPrefix = "episodedb:embedding:"

// Cache stores query embeddings by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32) error
}

// CacheKey derives the cache key for text embedded with model. Texts that
// differ only in whitespace share a key; case is significant.
func CacheKey(model, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return cacheKeyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	vector  []float32
	expires time.Time
}

// MemoryCache keeps embeddings in process memory. A zero TTL never expires.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]float32(nil), entry.vector...), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{vector: append([]float32(nil), vector...)}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = entry
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache stores embeddings as JSON arrays in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrConfiguration, "cache", "connect", fmt.Sprintf("redis %s unreachable", addr), err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	return vector, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// NewCacheFromConfig returns a RedisCache when cache.redis_addr is set and a
// MemoryCache otherwise.
func NewCacheFromConfig(ctx context.Context, cfg *config.Config) (Cache, error) {
	if cfg.Cache.RedisAddr == "" {
		return NewMemoryCache(cfg.CacheTTL()), nil
	}
	return NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.CacheTTL())
}

// QueryEmbedder embeds single search queries through a cache.
type QueryEmbedder struct {
	provider Provider
	cache    Cache
	logger   *slog.Logger
}

// NewQueryEmbedder constructs a QueryEmbedder. A nil cache disables caching.
func NewQueryEmbedder(provider Provider, cache Cache, logger *slog.Logger) *QueryEmbedder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &QueryEmbedder{provider: provider, cache: cache, logger: logging.NewComponentLogger(logger, "query-embedding")}
}

// Model returns the provider's model name.
func (q *QueryEmbedder) Model() string { return q.provider.Model() }

// EmbedQuery returns the embedding for text. Cache failures are logged and
// fall through to the provider.
func (q *QueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "embedding", "query", "query text is empty", nil)
	}
	logger := logging.WithContext(ctx, q.logger)
	key := CacheKey(q.provider.Model(), text)
	if q.cache != nil {
		vector, ok, err := q.cache.Get(ctx, key)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "query embedding cache read failed", "cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache.redis_addr"),
				logging.String(logging.FieldImpact, "query embedded without cache"),
			)
		case ok:
			logger.Debug("query embedding cache hit")
			return vector, nil
		}
	}

	results, err := q.provider.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, &EmbeddingError{Batch: 0, Expected: 1, Err: err}
	}
	ordered, err := restoreOrder(0, 1, results)
	if err != nil {
		return nil, err
	}
	vector := ordered[0]
	if q.cache != nil {
		if err := q.cache.Set(ctx, key, vector); err != nil {
			logging.WarnWithContext(logger, "query embedding cache write failed", "cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache.redis_addr"),
				logging.String(logging.FieldImpact, "next identical query calls the provider again"),
			)
		}
	}
	return vector, nil
}
