package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for cached secrets.
const secretKeyPrefix = "vault:secret:"

// RedisStore is a Redis-backed secret store. This is the recommended backend
// when multiple instances must share the resolved endpoint cache.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed secret store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, secretKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get secret %q: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	// No TTL: endpoint addresses stay valid until overwritten by the next
	// discovery bootstrap.
	if err := s.client.Set(ctx, secretKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set secret %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, secretKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check secret %q: %w", key, err)
	}
	return n > 0, nil
}
