package httpapi

import (
	"sync"
	"time"
)

// loginLimiter counts attempts per key (client ip or email) in a sliding
// window. Keys whose attempts have all expired are dropped on the next sweep.
type loginLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	limit     int
	attempts  map[string][]time.Time
	lastSweep time.Time
}

func newLoginLimiter(window time.Duration, limit int) *loginLimiter {
	return &loginLimiter{
		window:   window,
		limit:    limit,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key at now. When the key is over its limit the
// attempt is not recorded and retryAfter is how long until the oldest attempt
// leaves the window.
func (l *loginLimiter) Allow(key string, now time.Time) (retryAfter time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	ts := l.live(l.attempts[key], now)
	if len(ts) >= l.limit {
		l.attempts[key] = ts
		return ts[0].Add(l.window).Sub(now), false
	}
	l.attempts[key] = append(ts, now)
	return 0, true
}

// Reset forgets key, used after a successful login.
func (l *loginLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *loginLimiter) live(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// sweep runs at most once per window.
func (l *loginLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, ts := range l.attempts {
		if ts = l.live(ts, now); len(ts) == 0 {
			delete(l.attempts, key)
		} else {
			l.attempts[key] = ts
		}
	}
}

func (l *loginLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
