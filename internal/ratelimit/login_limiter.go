package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginLimiter bounds login attempts per key (identity or identity+IP) using
// a redis counter with a rolling window. A limiter outage never blocks
// logins: availability wins over strictness here, unlike the credential
// store, which fails closed.
type LoginLimiter struct {
	client *redis.Client
	logger *zap.Logger
	max    int
	window time.Duration
}

// NewLoginLimiter constructs the limiter. A nil client disables limiting.
func NewLoginLimiter(client *redis.Client, logger *zap.Logger, max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, logger: logger, max: max, window: window}
}

// Allow records an attempt and reports whether the caller is still within
// the window budget.
func (l *LoginLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.max <= 0 {
		return true
	}

	redisKey := "login_attempts:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.Error(err))
		}
	}
	return count <= int64(l.max)
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	if err := l.client.Del(ctx, "login_attempts:"+key).Err(); err != nil {
		l.logger.Warn("rate limiter reset failed", zap.Error(err))
	}
}
