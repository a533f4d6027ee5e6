package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores the current access token so several collectors can share it.
type TokenCache struct {
	rdb *redis.Client
	key string
}

// NewTokenCache creates a token cache keyed by name.
func NewTokenCache(client *Client, name string) *TokenCache {
	return &TokenCache{rdb: client.rdb, key: client.key("token", name)}
}

// Load returns the cached token. An empty token means none is stored.
func (c *TokenCache) Load(ctx context.Context) (string, time.Time, error) {
	vals, err := c.rdb.HMGet(ctx, c.key, "token", "expires_at").Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("hmget failed: %w", err)
	}
	token, _ := vals[0].(string)
	exp, _ := vals[1].(string)
	if token == "" || exp == "" {
		return "", time.Time{}, nil
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid expiry %q: %w", exp, err)
	}
	return token, time.Unix(unix, 0), nil
}

// Store caches token until expiresAt.
func (c *TokenCache) Store(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key, "token", token, "expires_at", strconv.FormatInt(expiresAt.Unix(), 10))
	pipe.Expire(ctx, c.key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}
