package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusconnect/backend/internal/models"
)

// ProfileCache holds resolved persisted profiles between requests.
type ProfileCache interface {
	Get(ctx context.Context, role models.Role, userID string, dst any) (bool, error)
	Set(ctx context.Context, role models.Role, userID string, v any) error
	Invalidate(ctx context.Context, role models.Role, userID string) error
}

type RedisProfileCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisProfileCache(client redis.UniversalClient, ttl time.Duration) *RedisProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisProfileCache{
		client:    client,
		keyPrefix: "campusconnect:profile",
		ttl:       ttl,
	}
}

func (c *RedisProfileCache) key(role models.Role, userID string) string {
	return c.keyPrefix + ":" + string(role) + ":" + userID
}

func (c *RedisProfileCache) Get(ctx context.Context, role models.Role, userID string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(role, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A payload we cannot read is as good as a miss.
		_ = c.client.Del(ctx, c.key(role, userID)).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, role models.Role, userID string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(role, userID), raw, c.ttl).Err()
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, role models.Role, userID string) error {
	return c.client.Del(ctx, c.key(role, userID)).Err()
}

// NoopProfileCache is used when REDIS_ADDR is not configured.
type NoopProfileCache struct{}

func (NoopProfileCache) Get(context.Context, models.Role, string, any) (bool, error) {
	return false, nil
}

func (NoopProfileCache) Set(context.Context, models.Role, string, any) error { return nil }

func (NoopProfileCache) Invalidate(context.Context, models.Role, string) error { return nil }
