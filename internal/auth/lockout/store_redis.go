package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps lockout state in Redis so all instances share one view of
// an account's failure history.
type RedisStore struct {
	client *redis.Client
	policy Policy
}

func NewRedisStore(client *redis.Client, policy Policy) *RedisStore {
	if policy.Threshold <= 0 {
		policy = DefaultPolicy()
	}
	return &RedisStore{client: client, policy: policy}
}

func failKey(key string) string { return "lockout:fail:" + key }
func lockKey(key string) string { return "lockout:lock:" + key }

func (s *RedisStore) Locked(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("lockout exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) AddFailure(ctx context.Context, key string) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, failKey(key))
	// Refresh the window on every failure; the counter dies down only after
	// the account goes quiet.
	pipe.Expire(ctx, failKey(key), s.policy.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("lockout incr: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Lock(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, lockKey(key), time.Now().UTC().Format(time.RFC3339), s.policy.LockDuration).Err(); err != nil {
		return fmt.Errorf("lockout set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, failKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}
