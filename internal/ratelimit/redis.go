package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the window on the
// first hit. Returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares buckets between instances through Redis. The window
// is measured by the key's TTL, so now only shifts the reported reset time.
type RedisLimiter struct {
	client redis.UniversalClient
	config Config
	prefix string
}

// NewRedisLimiter creates a limiter on an existing connection.
func NewRedisLimiter(client redis.UniversalClient, cfg Config, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "sa:rl:"
	}
	return &RedisLimiter{client: client, config: cfg.withDefaults(), prefix: prefix}
}

// Admit counts the attempt in Redis.
func (l *RedisLimiter) Admit(ctx context.Context, key string, now time.Time) (Decision, error) {
	res, err := fixedWindowScript.Run(ctx, l.client,
		[]string{l.prefix + key},
		l.config.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	resetAt := now.Add(time.Duration(res[1]) * time.Millisecond)
	return decide(int(res[0]), resetAt, now, l.config.Max), nil
}
