package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/intlpay/backend/internal/config"
)

// Limit is a fixed-window quota.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
}

// RateLimitError reports an exhausted quota and when it frees up.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RateLimiter counts attempts in Redis. A nil client or a Redis failure lets
// every request through.
type RateLimiter struct {
	redis       *redis.Client
	prefix      string
	Login       Limit
	Transaction Limit
}

func NewRateLimiter(redisClient *redis.Client, cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		prefix: cfg.KeyPrefix,
		Login: Limit{
			Name:   "login",
			Max:    cfg.LoginAttempts,
			Window: cfg.LoginWindow,
		},
		Transaction: Limit{
			Name:   "transaction",
			Max:    cfg.TransactionRequests,
			Window: cfg.TransactionWindow,
		},
	}
}

func (l *RateLimiter) key(limit Limit, subject string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, limit.Name, subject)
}

// Check fails with a *RateLimitError when subject has used up limit. It does
// not count the current attempt.
func (l *RateLimiter) Check(ctx context.Context, limit Limit, subject string) error {
	if l == nil || l.redis == nil {
		return nil
	}

	key := l.key(limit, subject)
	count, err := l.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		log.Printf("[RATELIMIT] %s check failed: %v", limit.Name, err)
		return nil
	}

	if count >= limit.Max {
		return &RateLimitError{RetryAfter: l.retryAfter(ctx, key, limit)}
	}
	return nil
}

// Hit counts one attempt. The window starts with the first attempt.
func (l *RateLimiter) Hit(ctx context.Context, limit Limit, subject string) {
	if l == nil || l.redis == nil {
		return
	}

	key := l.key(limit, subject)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[RATELIMIT] %s increment failed: %v", limit.Name, err)
		return
	}
	if count == 1 {
		l.redis.Expire(ctx, key, limit.Window)
	}
}

// Allow counts the attempt and fails once the quota is exceeded.
func (l *RateLimiter) Allow(ctx context.Context, limit Limit, subject string) error {
	if err := l.Check(ctx, limit, subject); err != nil {
		return err
	}
	l.Hit(ctx, limit, subject)
	return nil
}

func (l *RateLimiter) retryAfter(ctx context.Context, key string, limit Limit) time.Duration {
	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return limit.Window
	}
	return ttl
}
