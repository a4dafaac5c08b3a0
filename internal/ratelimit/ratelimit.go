// Package ratelimit keeps one token bucket per key, such as a client IP or an
// IP and username pair. Keys can also be blocked outright for a while.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused, unblocked key is remembered.
const DefaultIdleTTL = 10 * time.Minute

type bucket struct {
	limiter      *rate.Limiter
	lastSeen     time.Time
	blockedUntil time.Time
}

// Keyed hands out token buckets by key. All buckets share one rate and burst.
type Keyed struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// New creates a Keyed limiter refilling limit tokens per second up to burst.
func New(limit rate.Limit, burst int, idleTTL time.Duration) *Keyed {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Keyed{
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (k *Keyed) WithClock(now func() time.Time) *Keyed {
	k.now = now
	return k
}

// Allow takes one token for key. Blocked keys are refused.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	b := k.get(key, now)
	if now.Before(b.blockedUntil) {
		return false
	}
	return b.limiter.AllowN(now, 1)
}

// Blocked reports whether key is blocked and how long the block lasts.
func (k *Keyed) Blocked(key string) (bool, time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		return false, 0
	}
	now := k.now()
	if now.Before(b.blockedUntil) {
		return true, b.blockedUntil.Sub(now)
	}
	return false, 0
}

// Penalize takes one token for key and blocks the key for block once its
// bucket runs dry. It reports whether the key is now blocked.
func (k *Keyed) Penalize(key string, block time.Duration) (bool, time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	b := k.get(key, now)
	if now.Before(b.blockedUntil) {
		return true, b.blockedUntil.Sub(now)
	}
	if !b.limiter.AllowN(now, 1) || b.limiter.TokensAt(now) < 1 {
		b.blockedUntil = now.Add(block)
		// Start afresh once the block is over.
		b.limiter = rate.NewLimiter(k.limit, k.burst)
		return true, block
	}
	return false, 0
}

// Reset forgets key.
func (k *Keyed) Reset(key string) {
	k.mu.Lock()
	delete(k.buckets, key)
	k.mu.Unlock()
}

// Len returns the number of remembered keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// get returns the bucket for key, creating it if needed. Callers hold mu.
func (k *Keyed) get(key string, now time.Time) *bucket {
	b, ok := k.buckets[key]
	if !ok {
		k.evictIdle(now)
		b = &bucket{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// evictIdle drops keys that are neither recent nor blocked. Callers hold mu.
func (k *Keyed) evictIdle(now time.Time) {
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) > k.idleTTL && !now.Before(b.blockedUntil) {
			delete(k.buckets, key)
		}
	}
}
