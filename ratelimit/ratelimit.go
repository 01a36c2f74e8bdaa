// Package ratelimit provides the per-key token-bucket limiter used in front
// of login and transfer attempts.
//
// Each keyed class (login by client IP, transfer by actor) gets its own
// Limiter instance; instances share no state. Refill is continuous and lazy:
// tokens are credited from elapsed wall time on access, no background clock
// runs. Buckets untouched for the idle TTL are evicted.
package ratelimit

import (
	"sync"
	"time"

	"github.com/NadimHamzehh/vaultflow"
)

// Limiter is a per-key token-bucket rate limiter.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute float64
	burst     float64
	idleTTL   time.Duration
	lastSweep time.Time

	// now is swapped in tests to drive refill deterministically.
	now func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// New creates a limiter for one bucket class.
func New(cfg vaultflow.RateConfig) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perMinute: float64(cfg.PerMinute),
		burst:     float64(cfg.Burst),
		idleTTL:   cfg.IdleTTL,
		now:       time.Now,
	}
}

// TryConsume takes one token from the key's bucket. It returns false without
// side effects when no token is available; a fresh bucket starts full.
func (l *Limiter) TryConsume(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	} else {
		elapsed := now.Sub(b.last)
		if elapsed > 0 {
			b.tokens += elapsed.Minutes() * l.perMinute
			if b.tokens > l.burst {
				b.tokens = l.burst
			}
		}

		b.last = now
	}

	if b.tokens < 1 {
		return false
	}

	b.tokens--

	return true
}

// sweep drops buckets idle past the TTL. Runs at most once per idle TTL
// half-life so hot paths stay cheap. Caller holds the mutex.
func (l *Limiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastSweep) < l.idleTTL/2 {
		return
	}

	l.lastSweep = now

	for key, b := range l.buckets {
		if now.Sub(b.last) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of live buckets. Test hook.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

// SetNow overrides the clock. Test hook.
func (l *Limiter) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now = now
}
