package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"rag-assistant/internal/monitoring"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "emb:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	vec, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write embedding cache: %w", err)
	}
	return nil
}

type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]float32
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]float32)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = vec
	return nil
}

// Cached serves repeat texts from a cache and forwards only misses to the
// wrapped embedder. Cache failures degrade to a miss.
type Cached struct {
	inner   Embedder
	cache   Cache
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewCached(inner Embedder, cache Cache, metrics *monitoring.Metrics, logger *zap.Logger) *Cached {
	return &Cached{inner: inner, cache: cache, metrics: metrics, logger: logger}
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		keys[i] = cacheKey(c.inner.Name(), t)
		vec, ok, err := c.cache.Get(ctx, keys[i])
		if err != nil {
			c.logger.Warn("Embedding cache lookup failed", zap.Error(err))
		}
		c.metrics.CacheLookup(ok)
		if ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := c.cache.Set(ctx, keys[i], vecs[j]); err != nil {
			c.logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
