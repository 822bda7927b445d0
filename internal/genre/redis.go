package genre

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/proprogresja/venue-events/internal/logger"
)

// redisKeyPrefix namespaces genre entries; bump the version when GenreInfo changes shape
const redisKeyPrefix = "genre_v1:"

// RedisClient is the subset of Redis the genre cache needs
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// ErrCacheMiss is returned by RedisClient.Get for a missing key
var ErrCacheMiss = errors.New("key not found")

// GoRedisClient implements RedisClient with go-redis
type GoRedisClient struct {
	client *redis.Client
}

// NewGoRedisClient connects to addr
func NewGoRedisClient(addr, password string, db int) *GoRedisClient {
	return &GoRedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Get returns the value at key, or ErrCacheMiss
func (r *GoRedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

// Set stores value at key without expiry
func (r *GoRedisClient) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// Keys lists keys matching pattern
func (r *GoRedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.client.Keys(ctx, pattern).Result()
}

// Ping checks the connection
func (r *GoRedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (r *GoRedisClient) Close() error {
	return r.client.Close()
}

// RedisCache stores GenreInfo as JSON under genre_v1:<artist>
type RedisCache struct {
	client RedisClient
}

// NewRedisCache creates a cache backed by client
func NewRedisCache(client RedisClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached entry for artist. Redis errors count as a miss.
func (c *RedisCache) Get(ctx context.Context, artist string) (GenreInfo, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+artist)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("Redis genre cache read failed", logger.Fields{"artist": artist, "error": err.Error()})
		}
		return GenreInfo{}, false
	}

	var info GenreInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		logger.Warn("Corrupt genre cache entry", logger.Fields{"artist": artist, "error": err.Error()})
		return GenreInfo{}, false
	}
	return info, true
}

// Set stores info for artist
func (c *RedisCache) Set(ctx context.Context, artist string, info GenreInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding genre info: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+artist, string(data)); err != nil {
		return fmt.Errorf("writing genre cache: %w", err)
	}
	return nil
}

// Len counts genre entries in Redis
func (c *RedisCache) Len(ctx context.Context) int {
	keys, err := c.client.Keys(ctx, redisKeyPrefix+"*")
	if err != nil {
		logger.Warn("Redis genre cache key scan failed", logger.Fields{"error": err.Error()})
		return 0
	}
	return len(keys)
}
