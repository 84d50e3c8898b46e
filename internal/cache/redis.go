package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Options configures a Redis-backed JSON cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// JSON is a small JSON value cache on top of Redis.
type JSON struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts Options) (*JSON, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", errPing)
	}
	return NewJSON(client, opts.Prefix, opts.TTL), nil
}

// NewJSON wraps an existing client.
func NewJSON(client redis.UniversalClient, prefix string, ttl time.Duration) *JSON {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSON) key(name string) string {
	return c.prefix + name
}

// Get decodes the cached value into dest. It reports false on a miss.
func (c *JSON) Get(ctx context.Context, name string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", name, err)
	}
	if errDecode := json.Unmarshal(raw, dest); errDecode != nil {
		return false, fmt.Errorf("cache: decode %s: %w", name, errDecode)
	}
	return true, nil
}

// Set stores value under name with the configured TTL.
func (c *JSON) Set(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", name, err)
	}
	if errSet := c.client.Set(ctx, c.key(name), raw, c.ttl).Err(); errSet != nil {
		return fmt.Errorf("cache: set %s: %w", name, errSet)
	}
	return nil
}

// Delete removes name.
func (c *JSON) Delete(ctx context.Context, name string) error {
	if errDel := c.client.Del(ctx, c.key(name)).Err(); errDel != nil {
		return fmt.Errorf("cache: delete %s: %w", name, errDel)
	}
	return nil
}

// Close releases the underlying client.
func (c *JSON) Close() error {
	return c.client.Close()
}
