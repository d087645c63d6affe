package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// Usage kinds metered against plan quotas.
const (
	QuotaKindDocuments = "documents"
	QuotaKindQuestions = "questions"
)

// QuotaStore tracks per-user monthly usage counters in Redis. Windows
// are UTC calendar months; keys expire on their own after two months.
type QuotaStore struct {
	client *redisv9.Client
}

const quotaKeyTTL = 62 * 24 * time.Hour

func NewQuotaStore(client *redisv9.Client) *QuotaStore {
	return &QuotaStore{client: client}
}

// Consume increments the counter and returns the new value. The caller
// compares against the plan limit and rolls back via Release on denial.
func (s *QuotaStore) Consume(ctx context.Context, kind string, userID uint) (int64, error) {
	key := s.key(kind, userID, time.Now().UTC())
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr quota failed: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, quotaKeyTTL).Err(); err != nil {
			return count, fmt.Errorf("redis expire quota failed: %w", err)
		}
	}
	return count, nil
}

// Release undoes a Consume that exceeded the limit.
func (s *QuotaStore) Release(ctx context.Context, kind string, userID uint) error {
	key := s.key(kind, userID, time.Now().UTC())
	if err := s.client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis decr quota failed: %w", err)
	}
	return nil
}

// Used reports the current window's consumption.
func (s *QuotaStore) Used(ctx context.Context, kind string, userID uint) (int64, error) {
	key := s.key(kind, userID, time.Now().UTC())
	count, err := s.client.Get(ctx, key).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get quota failed: %w", err)
	}
	return count, nil
}

func (s *QuotaStore) key(kind string, userID uint, now time.Time) string {
	return fmt.Sprintf("quota:%s:%d:%s", kind, userID, now.Format("2006-01"))
}
