package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache stores transformed payloads as JSON with a fixed TTL
type ResponseCache struct {
	*Client
	ttl time.Duration
}

// NewResponseCache creates a response cache on top of the client
func NewResponseCache(client *Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{Client: client, ttl: ttl}
}

// cacheKey returns the Redis key for a cached response
func cacheKey(key string) string {
	return keyPrefix + key
}

// Get decodes the cached value into dst. A missing key is not an error.
func (c *ResponseCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting cached response: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding cached response: %w", err)
	}
	return true, nil
}

// Set stores value under key
func (c *ResponseCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cached response: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("setting cached response: %w", err)
	}
	return nil
}
