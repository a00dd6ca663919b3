// Package ratelimit throttles inbound requests with one token bucket per
// caller key.
package ratelimit

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Bucket is the token bucket of a single caller
type Bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out tokens per caller key. A nil *RateLimiter allows
// everything.
type RateLimiter struct {
	buckets map[string]*Bucket // key -> bucket
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clock   quartz.Clock
	logger  *zap.Logger
}

// NewRateLimiter creates a limiter allowing perSecond sustained requests and
// bursts of burst per key. It returns nil, which allows everything, when
// perSecond is not positive.
func NewRateLimiter(perSecond float64, burst int, clock quartz.Clock, logger *zap.Logger) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &RateLimiter{
		buckets: make(map[string]*Bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clock:   clock,
		logger:  logger,
	}
}

// getBucket retrieves or creates the bucket for key. Callers hold rl.mu.
func (rl *RateLimiter) getBucket(key string) *Bucket {
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	bucket := &Bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	rl.buckets[key] = bucket
	return bucket
}

// Allow takes a token for key and reports whether one was available
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.Reserve(key)
	return ok
}

// Reserve takes a token for key. When none is available it reports false
// along with how long until the next token.
func (rl *RateLimiter) Reserve(key string) (time.Duration, bool) {
	if rl == nil {
		return 0, true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	bucket := rl.getBucket(key)
	bucket.lastSeen = now

	if bucket.limiter.AllowN(now, 1) {
		return 0, true
	}

	// Time until one token has accumulated again
	retryAfter := time.Duration((1 - bucket.limiter.TokensAt(now)) / float64(rl.limit) * float64(time.Second))
	if retryAfter < time.Second {
		retryAfter = time.Second
	}

	rl.logger.Debug("rate limit exceeded",
		zap.String("key", key),
		zap.Duration("retry_after", retryAfter),
	)
	return retryAfter, false
}

// Prune drops buckets idle for longer than idle and returns how many were
// removed
func (rl *RateLimiter) Prune(idle time.Duration) int {
	if rl == nil {
		return 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock.Now().Add(-idle)
	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
