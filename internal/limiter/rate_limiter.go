package limiter

import (
	"sync"
	"time"
)

// Limiter is implemented by all rate limiter backends, so the in-memory and
// Redis implementations are interchangeable.
type Limiter interface {
	// Allow reports whether a request from the given client should be
	// served. Returns false when the client is over its limit.
	Allow(client string) bool

	// Close cleans up any resources (Redis connections, goroutines, etc.)
	Close() error
}

// TokenBucket is the per-client state of the token bucket algorithm: tokens
// refill at a fixed rate up to a capacity, each request consumes one, and a
// request with no token available is rejected. Bursts up to the capacity are
// allowed while the average rate holds.
type TokenBucket struct {
	tokens         float64
	capacity       float64
	refillRate     float64 // tokens per second
	lastRefillTime time.Time
	mu             sync.Mutex
}

// NewTokenBucket creates a full bucket refilling at rate tokens per second.
// The bucket starts with at least one token so a fresh client's first request
// always passes, even for fractional rates.
func NewTokenBucket(rate float64, capacity float64) *TokenBucket {
	return &TokenBucket{
		tokens:         max(capacity, 1.0),
		capacity:       max(capacity, 1.0),
		refillRate:     rate,
		lastRefillTime: time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}

	return false
}

// refill adds tokens for the time elapsed since the last refill.
// Must be called with the mutex held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()

	tb.tokens = min(tb.tokens+elapsed*tb.refillRate, tb.capacity)
	tb.lastRefillTime = now
}

// MemoryLimiter keeps a token bucket per client address. Suitable for
// single-instance deployments; use the Redis limiter when multiple instances
// must share limits.
type MemoryLimiter struct {
	buckets     sync.Map // map[string]*TokenBucket keyed by client address
	rate        float64
	capacity    float64
	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter creates an in-memory limiter allowing requestsPerSecond
// per client. Fractional rates work: 0.2 means one request per five seconds.
func NewMemoryLimiter(requestsPerSecond float64) *MemoryLimiter {
	return &MemoryLimiter{
		rate:        requestsPerSecond,
		capacity:    requestsPerSecond,
		lastCleanup: time.Now(),
	}
}

// Allow implements the Limiter interface.
func (rl *MemoryLimiter) Allow(client string) bool {
	bucket := rl.getBucket(client)
	allowed := bucket.Allow()

	rl.maybeCleanup()

	return allowed
}

func (rl *MemoryLimiter) getBucket(client string) *TokenBucket {
	if value, ok := rl.buckets.Load(client); ok {
		return value.(*TokenBucket)
	}

	bucket := NewTokenBucket(rl.rate, rl.capacity)
	actual, _ := rl.buckets.LoadOrStore(client, bucket)
	return actual.(*TokenBucket)
}

// maybeCleanup drops buckets idle for five minutes or more, at most once
// every five minutes, so abandoned clients do not accumulate forever.
func (rl *MemoryLimiter) maybeCleanup() {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}

	threshold := time.Now().Add(-5 * time.Minute)

	rl.buckets.Range(func(key, value interface{}) bool {
		bucket := value.(*TokenBucket)
		bucket.mu.Lock()
		lastAccess := bucket.lastRefillTime
		bucket.mu.Unlock()

		if lastAccess.Before(threshold) {
			rl.buckets.Delete(key)
		}

		return true
	})

	rl.lastCleanup = time.Now()
}

// Close implements the Limiter interface. There is nothing to release for
// the in-memory implementation.
func (rl *MemoryLimiter) Close() error {
	return nil
}
