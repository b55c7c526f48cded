package feed

import (
	"sync"
	"time"
)

// frameLimiter is a per-connection sliding-window limit on inbound frames.
// The feed is server-to-client; a chatty client is misbehaving.
type frameLimiter struct {
	mu     sync.Mutex
	events []time.Time
	limit  int
	window time.Duration
}

func newFrameLimiter(limit int, window time.Duration) *frameLimiter {
	if limit <= 0 {
		limit = defaultInboundFrames
	}
	if window <= 0 {
		window = defaultInboundWindow
	}
	return &frameLimiter{
		events: make([]time.Time, 0, limit+8),
		limit:  limit,
		window: window,
	}
}

// Allow reports whether a frame at now is permitted.
func (r *frameLimiter) Allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cut := now.Add(-r.window)
	dst := r.events[:0]
	for _, t := range r.events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	r.events = dst

	if len(r.events) >= r.limit {
		return false
	}
	r.events = append(r.events, now)
	return true
}
