package events

import (
	"sync"
	"time"
)

// rateLimiter throttles how often the bus logs sink failures, so a
// sink that is down does not flood the logs on every emitted event.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.last) >= r.interval {
		r.last = now
		return true
	}
	return false
}
