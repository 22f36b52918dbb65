package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"example.com/backstage/services/scheduler/config"
)

// userCacheTTL bounds how long a resolved user id is trusted before the
// store is consulted again.
const userCacheTTL = 10 * time.Minute

// RedisCache provides a second-level cache for user name resolution.
// The first level is the per-batch map inside the import pipeline.
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(cfg config.Config) (*RedisCache, error) {
	if !cfg.RedisEnabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:  client,
		enabled: true,
	}, nil
}

// GetUserID retrieves a cached user id by name. The second return value
// reports whether the name was present in the cache.
func (c *RedisCache) GetUserID(ctx context.Context, name string) (uint, bool) {
	if !c.enabled {
		return 0, false
	}

	val, err := c.client.Get(ctx, userCacheKey(name)).Result()
	if err != nil {
		return 0, false
	}

	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false
	}

	return uint(id), true
}

// SetUserID caches a resolved user id by name
func (c *RedisCache) SetUserID(ctx context.Context, name string, id uint) {
	if !c.enabled {
		return
	}

	// Best effort, a failed cache write never fails resolution
	c.client.Set(ctx, userCacheKey(name), strconv.FormatUint(uint64(id), 10), userCacheTTL)
}

// userCacheKey generates a cache key for user name resolution
func userCacheKey(name string) string {
	return fmt.Sprintf("user:name:%s", name)
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}

	return c.client.Close()
}
