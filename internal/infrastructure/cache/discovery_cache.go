package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultDiscoveryTTL is how long model metadata stays cached
const DefaultDiscoveryTTL = 10 * time.Minute

// DiscoveryCache caches Odoo model metadata per database. Values are JSON
// encoded so both implementations behave the same.
type DiscoveryCache interface {
	Get(ctx context.Context, db, key string, dest any) (bool, error)
	Set(ctx context.Context, db, key string, value any, ttl time.Duration) error
}

func discoveryKey(db, key string) string {
	return "discovery:" + db + ":" + key
}

// RedisDiscoveryCache stores entries in Redis
type RedisDiscoveryCache struct {
	client redis.UniversalClient
}

// NewRedisDiscoveryCache creates a Redis-backed cache
func NewRedisDiscoveryCache(client redis.UniversalClient) *RedisDiscoveryCache {
	return &RedisDiscoveryCache{client: client}
}

// Get loads an entry into dest, reporting whether it was found
func (c *RedisDiscoveryCache) Get(ctx context.Context, db, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, discoveryKey(db, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read discovery cache: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode discovery cache entry: %w", err)
	}
	return true, nil
}

// Set stores value for ttl
func (c *RedisDiscoveryCache) Set(ctx context.Context, db, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode discovery cache entry: %w", err)
	}
	if err := c.client.Set(ctx, discoveryKey(db, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write discovery cache: %w", err)
	}
	return nil
}

var _ DiscoveryCache = (*RedisDiscoveryCache)(nil)

type cachedEntry struct {
	raw       []byte
	expiresAt time.Time
}

// InMemoryDiscoveryCache stores entries in process memory
type InMemoryDiscoveryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedEntry
}

// NewInMemoryDiscoveryCache creates an in-memory cache
func NewInMemoryDiscoveryCache() *InMemoryDiscoveryCache {
	return &InMemoryDiscoveryCache{entries: map[string]cachedEntry{}}
}

// Get loads an entry into dest, reporting whether it was found
func (c *InMemoryDiscoveryCache) Get(_ context.Context, db, key string, dest any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[discoveryKey(db, key)]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode discovery cache entry: %w", err)
	}
	return true, nil
}

// Set stores value for ttl
func (c *InMemoryDiscoveryCache) Set(_ context.Context, db, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode discovery cache entry: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[discoveryKey(db, key)] = cachedEntry{raw: raw, expiresAt: time.Now().Add(ttl)}
	return nil
}

var _ DiscoveryCache = (*InMemoryDiscoveryCache)(nil)

// FallbackDiscoveryCache reads and writes Redis first and degrades to the
// in-memory cache when Redis fails.
type FallbackDiscoveryCache struct {
	primary  DiscoveryCache
	fallback DiscoveryCache
	logger   *zap.Logger
}

// NewFallbackDiscoveryCache wraps primary with an in-memory fallback
func NewFallbackDiscoveryCache(primary DiscoveryCache, logger *zap.Logger) *FallbackDiscoveryCache {
	return &FallbackDiscoveryCache{
		primary:  primary,
		fallback: NewInMemoryDiscoveryCache(),
		logger:   logger,
	}
}

// Get implements DiscoveryCache
func (c *FallbackDiscoveryCache) Get(ctx context.Context, db, key string, dest any) (bool, error) {
	found, err := c.primary.Get(ctx, db, key, dest)
	if err == nil {
		return found, nil
	}
	c.logger.Warn("Discovery cache read failed, using in-memory fallback", zap.Error(err))
	return c.fallback.Get(ctx, db, key, dest)
}

// Set implements DiscoveryCache
func (c *FallbackDiscoveryCache) Set(ctx context.Context, db, key string, value any, ttl time.Duration) error {
	if err := c.primary.Set(ctx, db, key, value, ttl); err != nil {
		c.logger.Warn("Discovery cache write failed, using in-memory fallback", zap.Error(err))
		return c.fallback.Set(ctx, db, key, value, ttl)
	}
	return nil
}

var _ DiscoveryCache = (*FallbackDiscoveryCache)(nil)
