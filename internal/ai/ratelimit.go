package ai

import (
	"sync"
	"time"
)

// RateLimiter enforces a per-user sliding window: at most limit requests
// inside the trailing window. Timestamps are trimmed lazily on each check and
// drained users are dropped from the table so it does not grow without bound.
//
// A token bucket would admit bursts that the trailing-window contract
// forbids, which is why this is not built on a rate package.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string][]time.Time),
	}
}

// Allow records a request for the user and reports whether it is within the
// limit. A denied request is not recorded.
func (l *RateLimiter) Allow(userID string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.windows[userID][:0:0]
	for _, ts := range l.windows[userID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.windows[userID] = recent
		return false
	}

	l.windows[userID] = append(recent, now)
	return true
}

// Prune drops users whose whole window has expired.
func (l *RateLimiter) Prune() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for user, stamps := range l.windows {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.windows, user)
		}
	}
}
