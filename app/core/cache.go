package core

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCache(client redis.UniversalClient, prefix string) *Cache {
	return &Cache{redis: client, prefix: prefix}
}

func (c *Cache) key(key string) string {
	return c.prefix + key
}

func (c *Cache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return c.redis.SetEx(ctx, c.key(key), value, expiresAt).Err()
}

// Get 未命中时返回 redis.Nil
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.redis.Get(ctx, c.key(key)).Result()
}
