package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ResponseCache holds recent gateway results keyed by (service, user, input).
// Entries older than the TTL are treated as absent.
type ResponseCache interface {
	Get(ctx context.Context, key string) (Response, bool)
	Set(ctx context.Context, key string, resp Response)
}

// CacheKey derives the cache key for a call from the logical service, the
// user and the serialized input payload.
func CacheKey(service, userID string, payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(append([]byte(service+"|"+userID+"|"), raw...))
	return hex.EncodeToString(sum[:])
}

// MemoryResponseCache is an in-process TTL cache. Expired entries are
// invisible to Get immediately and evicted by the janitor.
type MemoryResponseCache struct {
	store *gocache.Cache
}

// NewMemoryResponseCache creates a cache with the given TTL.
func NewMemoryResponseCache(ttl time.Duration) *MemoryResponseCache {
	return &MemoryResponseCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryResponseCache) Get(_ context.Context, key string) (Response, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return Response{}, false
	}
	resp, ok := v.(Response)
	return resp, ok
}

func (c *MemoryResponseCache) Set(_ context.Context, key string, resp Response) {
	c.store.SetDefault(key, resp)
}

// RedisResponseCache shares cached responses between instances.
type RedisResponseCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisResponseCache creates a redis-backed cache with the given TTL.
func NewRedisResponseCache(client *redis.Client, ttl time.Duration) *RedisResponseCache {
	return &RedisResponseCache{client: client, ttl: ttl, prefix: "ai:response:"}
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) (Response, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

func (c *RedisResponseCache) Set(ctx context.Context, key string, resp Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, raw, c.ttl)
}
