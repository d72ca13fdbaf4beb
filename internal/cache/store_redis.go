package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"xhuma/pkg/platform/sentinel"
)

const defaultKeyPrefix = "xhuma:"

// RedisStore is the shared Store used across service instances. Expiry is
// native Redis TTL, so a read never observes an expired value.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key, e.g. per environment.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %w", sentinel.ErrUnavailable, key, err)
	}
	return v, nil
}

// Set writes with a single SET PX, so the value and its expiry land together.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return sentinel.ErrInvalidState
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", sentinel.ErrUnavailable, key, err)
	}
	return nil
}
