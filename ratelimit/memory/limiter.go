package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PaulFidika/otpkit/ratelimit"
)

// Limiter is an in-memory sliding-window rate limiter for single-node
// deployments and tests.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]ratelimit.Limit
	buckets map[string][]time.Time
	now     func() time.Time
}

// New constructs a limiter. A nil map uses ratelimit.DefaultLimits.
func New(limits map[string]ratelimit.Limit) *Limiter {
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// WithNow overrides the limiter clock.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Allow records a hit for key in bucket and reports whether it fits the
// window. Denied hits are not recorded.
func (l *Limiter) Allow(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := ratelimit.Lookup(l.limits, bucket)
	now := l.now()
	windowStart := now.Add(-lim.Window)
	limitKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.buckets[limitKey]
	i := 0
	for i < len(ts) && !ts[i].After(windowStart) {
		i++
	}
	ts = ts[i:]

	if len(ts) >= lim.Limit {
		l.buckets[limitKey] = ts
		return false, nil
	}
	l.buckets[limitKey] = append(ts, now)
	return true, nil
}

// AllowNamed is Allow without a context.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	return l.Allow(context.Background(), bucket, key)
}
