package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	rateLimitKeyPrefix = "grix:mcp:ratelimit:"
	rateLimitWindow    = time.Minute
	redisLimitTimeout  = 250 * time.Millisecond
)

// redisRateLimiter counts requests per key in fixed one-minute windows.
// Redis errors fall back to the in-process limiter.
type redisRateLimiter struct {
	client   *redis.Client
	limit    int64
	fallback rateLimiter
	now      func() time.Time
	log      zerolog.Logger
}

func newRedisRateLimiter(client *redis.Client, perMin int, fallback rateLimiter, log zerolog.Logger) *redisRateLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &redisRateLimiter{
		client:   client,
		limit:    int64(perMin),
		fallback: fallback,
		now:      time.Now,
		// one warning per minute while redis is down
		log: log.With().Str("component", "mcp_rate_limiter").Logger().
			Sample(&zerolog.BurstSampler{Burst: 1, Period: time.Minute}),
	}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		key = "default"
	}
	window := l.now().Unix() / int64(rateLimitWindow/time.Second)
	sum := sha256.Sum256([]byte(key))
	redisKey := rateLimitKeyPrefix + hex.EncodeToString(sum[:12]) + ":" + strconv.FormatInt(window, 10)

	ctx, cancel := context.WithTimeout(ctx, redisLimitTimeout)
	defer cancel()

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*rateLimitWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn().Err(err).Msg("redis unavailable, using local limiter")
		if l.fallback == nil {
			return true
		}
		return l.fallback.Allow(ctx, key)
	}
	return incr.Val() <= l.limit
}
