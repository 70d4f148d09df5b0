package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stella/internal/jobs"
)

const redisKeyPrefix = "stella:webhook:"

// RedisStore backs the record store with Redis so webhook records survive
// process restarts and are shared across replicas. TTL handling is native:
// the key is written with the retention window as its expiry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, handle jobs.Handle) (jobs.Result, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+string(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return jobs.Result{}, false, nil
	}
	if err != nil {
		return jobs.Result{}, false, fmt.Errorf("webhook: redis get: %w", err)
	}
	var rec jobs.Result
	if err := json.Unmarshal(raw, &rec); err != nil {
		return jobs.Result{}, false, fmt.Errorf("webhook: decode record: %w", err)
	}
	return rec, true, nil
}

func (s *RedisStore) Upsert(ctx context.Context, rec jobs.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = RetentionTTL
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("webhook: encode record: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+string(rec.Handle), raw, ttl).Err(); err != nil {
		return fmt.Errorf("webhook: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, handle jobs.Handle) error {
	if err := s.client.Del(ctx, redisKeyPrefix+string(handle)).Err(); err != nil {
		return fmt.Errorf("webhook: redis del: %w", err)
	}
	return nil
}

var _ RecordStore = (*RedisStore)(nil)
