package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces rate limits shared across all server instances.
// It counts requests per client per fixed time window in Redis, with key
// TTLs handling cleanup.
//
// Key format: ratelimit:{client}:{window}
type RedisLimiter struct {
	client         *redis.Client
	ctx            context.Context
	requestsPerSec float64
	windowSize     time.Duration
}

// incrWithExpiry increments the window counter and sets its expiry on first
// use, atomically. Running it as a script avoids the race where a crash
// between INCR and EXPIRE leaves a counter that never expires.
const incrWithExpiry = `
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[1])
	end
	return current
`

// NewRedisLimiter connects to Redis and verifies the connection.
//
// For rates below one request per second the window stretches so the limit
// stays meaningful: 0.2 req/s becomes one request per 5-second window.
func NewRedisLimiter(addr, password string, db int, requestsPerSecond float64) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis for rate limiting: %w", err)
	}

	windowSize := time.Second
	if requestsPerSecond < 1.0 {
		windowSize = time.Duration(float64(time.Second) / requestsPerSecond)
	}

	return &RedisLimiter{
		client:         client,
		ctx:            ctx,
		requestsPerSec: requestsPerSecond,
		windowSize:     windowSize,
	}, nil
}

// Allow implements the Limiter interface.
//
// On Redis errors it fails open: blocking all traffic because the limiter
// backend is down would be worse than briefly not limiting.
func (rl *RedisLimiter) Allow(client string) bool {
	windowSeconds := int64(rl.windowSize.Seconds())
	window := time.Now().Unix() / windowSeconds
	key := fmt.Sprintf("ratelimit:%s:%d", client, window)

	result, err := rl.client.Eval(rl.ctx, incrWithExpiry, []string{key}, windowSeconds*2).Result()
	if err != nil {
		return true
	}

	count, ok := result.(int64)
	if !ok {
		return true
	}

	limit := int64(math.Ceil(rl.requestsPerSec * rl.windowSize.Seconds()))
	return count <= limit
}

// Close closes the Redis connection.
func (rl *RedisLimiter) Close() error {
	if rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
