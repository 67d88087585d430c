package middleware

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces rate limit counters.
const redisKeyPrefix = "talentboard:ratelimit:"

// fixedWindowScript increments the counter and starts the window on the first
// hit. Returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisRateLimitStore implements RateLimitStore with a fixed window counter in
// Redis so limits are shared between server instances. It fails open: when
// Redis is unavailable requests are allowed and the error is counted.
type RedisRateLimitStore struct {
	client  redis.Scripter
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client redis.Scripter) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// WithMetrics sets the metrics used to count Redis errors.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// Allow implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, config.WindowDuration.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		slog.WarnContext(ctx, "rate limit store unavailable, allowing request", "error", err)
		if s.metrics != nil {
			s.metrics.IncLimitRedisErrors()
		}
		return true, config.RequestsPerWindow, 0
	}

	count, ttlMillis := int(res[0]), res[1]
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}

	retryAfter := 1
	if ttlMillis > 0 {
		retryAfter = int((ttlMillis + 999) / 1000)
	}
	return false, 0, retryAfter
}
