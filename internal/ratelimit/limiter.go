// Package ratelimit implements a sliding-window throttle for outbound
// requests. It is deliberately not a token bucket: a rolling window of recent
// request timestamps bounds how many requests may start within the configured
// spacing period.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter spaces outbound requests for one scraper instance.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	stamps   []time.Time
	now      func() time.Time
}

// New creates a Limiter allowing at most capacity requests per window.
func New(window time.Duration, capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		window:   window,
		capacity: capacity,
		now:      time.Now,
	}
}

// Wait suspends the caller until it is safe to issue another request. The
// wait is computed from the oldest timestamp still inside the window; there
// is no fairness guarantee across callers beyond FIFO-ish window drain.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// tryAcquire records the request and returns (0, true) when the window has
// room, or the remaining wait and false otherwise.
func (l *Limiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) < l.capacity {
		l.stamps = append(l.stamps, now)
		return 0, true
	}
	return l.stamps[0].Add(l.window).Sub(now), false
}

// Reset clears the window. Used in tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stamps = nil
}
