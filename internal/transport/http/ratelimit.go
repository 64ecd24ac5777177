package http

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window counter per connection.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	counter int
	resetAt time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.After(r.resetAt) {
		r.counter = 0
		r.resetAt = now.Add(r.window)
	}
	r.counter++
	return r.counter <= r.limit
}
