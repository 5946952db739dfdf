package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisUserCache shares header users between API instances.
type RedisUserCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisUserCache constructs a Redis-backed cache whose entries live for ttl.
func NewRedisUserCache(rdb redis.UniversalClient, ttl time.Duration) *RedisUserCache {
	return &RedisUserCache{rdb: rdb, ttl: ttl, prefix: "habitboard:users:"}
}

func (c *RedisUserCache) key(sheet string) string {
	return c.prefix + sheet
}

// Get returns the cached users of sheet.
func (c *RedisUserCache) Get(ctx context.Context, sheet string) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(sheet)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get users: %w", err)
	}
	var users []string
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, false, fmt.Errorf("decode cached users: %w", err)
	}
	return users, true, nil
}

// Set stores the users of sheet.
func (c *RedisUserCache) Set(ctx context.Context, sheet string, users []string) error {
	if users == nil {
		users = []string{}
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key(sheet), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set users: %w", err)
	}
	return nil
}

// Invalidate drops the entry for sheet.
func (c *RedisUserCache) Invalidate(ctx context.Context, sheet string) error {
	if err := c.rdb.Del(ctx, c.key(sheet)).Err(); err != nil {
		return fmt.Errorf("redis del users: %w", err)
	}
	return nil
}
