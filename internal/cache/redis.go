package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "revoked:"

// RedisCache backs refresh-token revocation. Entries carry the remaining
// token lifetime as TTL, so the set cleans itself up.
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{Client: client}, nil
}

func (c *RedisCache) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	return c.Client.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err()
}

func (c *RedisCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := c.Client.Exists(ctx, revokedKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
