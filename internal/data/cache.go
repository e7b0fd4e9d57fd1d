package data

import (
	"context"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/quantdesk/quantdesk/internal/telemetry"
)

// Cache stores serialized price series keyed by ticker and period.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemoryCache returns an in-process TTL cache.
func NewMemoryCache() Cache { return &memoryCache{m: make(map[string]entry)} }

// NewCache returns a Redis-backed cache when REDIS_ADDR is set, otherwise an
// in-process one.
func NewCache() Cache {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return &redisCache{r: redis.NewClient(&redis.Options{Addr: addr})}
	}
	return NewMemoryCache()
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memoryCache) Set(key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct{ r *redis.Client }

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	v, err := r.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *redisCache) Set(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = r.r.Set(ctx, key, val, ttl).Err()
}

// cachedGet wraps a fetch with the cache, recording hit/miss telemetry.
func cachedGet(c Cache, key string, ttl time.Duration, fetch func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.Get(key); ok {
		telemetry.CacheHit()
		return b, nil
	}
	telemetry.CacheMiss()
	b, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Set(key, b, ttl)
	return b, nil
}
