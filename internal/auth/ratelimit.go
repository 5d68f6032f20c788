// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"sync"
	"time"
)

// AttemptLimiter enforces a fixed-window attempt budget per key.
//
// # Semantics
//
// Keys look like "login_<email>". A bucket opens on the first attempt and
// admits up to maxAttempts within the window. The first check after the
// window has elapsed resets the bucket (count=1, windowStart=now), and a
// successful operation resets it entirely. Denials are resolved locally;
// no bucket state ever reaches the network.
type AttemptLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*attemptBucket
	maxAttempts int
	window      time.Duration

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

type attemptBucket struct {
	attempts    int
	windowStart time.Time
}

// NewAttemptLimiter creates a limiter with the given per-window budget.
func NewAttemptLimiter(maxAttempts int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		buckets:     make(map[string]*attemptBucket),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// CanAttempt records an attempt for key and reports whether it is admitted.
func (limiter *AttemptLimiter) CanAttempt(key string) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()
	bucket, ok := limiter.buckets[key]

	// Fresh key, or the previous window has fully elapsed.
	if !ok || now.Sub(bucket.windowStart) > limiter.window {
		limiter.buckets[key] = &attemptBucket{attempts: 1, windowStart: now}
		return true
	}

	if bucket.attempts < limiter.maxAttempts {
		bucket.attempts++
		return true
	}

	return false
}

// RemainingCooldown returns how long until the key's window elapses.
// A key without a bucket has no cooldown.
func (limiter *AttemptLimiter) RemainingCooldown(key string) time.Duration {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	bucket, ok := limiter.buckets[key]
	if !ok {
		return 0
	}

	remaining := limiter.window - limiter.now().Sub(bucket.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingAttempts returns how many attempts the key has left in the
// current window.
func (limiter *AttemptLimiter) RemainingAttempts(key string) int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	bucket, ok := limiter.buckets[key]
	if !ok || limiter.now().Sub(bucket.windowStart) > limiter.window {
		return limiter.maxAttempts
	}

	remaining := limiter.maxAttempts - bucket.attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset discards the bucket for key. Called after a successful operation.
func (limiter *AttemptLimiter) Reset(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	delete(limiter.buckets, key)
}
