package httpx

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window counter keyed by gateway. The counter
// is shared process-wide: concurrent requests for different orders on
// the same gateway consume the same window.
type RateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	items  map[string]*windowEntry

	now func() time.Time
}

type windowEntry struct {
	windowStart time.Time
	count       int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		items:  make(map[string]*windowEntry),
		now:    time.Now,
	}
}

// Allow consumes one slot for key. Every attempt, including retries,
// must pass through here before the wire.
func (r *RateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := r.now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.items[key]
	if entry == nil || now.Sub(entry.windowStart) > r.window {
		entry = &windowEntry{windowStart: now}
		r.items[key] = entry
	}

	if entry.count >= r.limit {
		return false
	}

	entry.count++
	return true
}
