package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter over Redis. One key per
// (subject, route class, window); the first hit sets the TTL.
type RateLimiter struct {
	client *redisv9.Client
	limit  int
	window time.Duration
}

// Decision reports whether a request may proceed and, when denied, how
// long until the window resets.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func NewRateLimiter(client *redisv9.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow counts a hit for the subject and returns the decision. Redis
// errors fail open so an unavailable cache never blocks traffic.
func (l *RateLimiter) Allow(ctx context.Context, subject, class string) (Decision, error) {
	key := l.windowKey(subject, class, time.Now())

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{Allowed: true, Remaining: l.limit}, fmt.Errorf("redis incr rate window failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{Allowed: true, Remaining: l.limit}, fmt.Errorf("redis expire rate window failed: %w", err)
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: l.limit - int(count)}, nil
}

func (l *RateLimiter) windowKey(subject, class string, now time.Time) string {
	bucket := now.Unix() / int64(l.window.Seconds())
	return fmt.Sprintf("ratelimit:%s:%s:%d", class, subject, bucket)
}
