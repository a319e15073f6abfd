package status

import (
	"sync"
	"time"
)

// Holder is the process-wide status string, published by the game loop
// and served verbatim to status queries.
type Holder struct {
	mu     sync.Mutex
	status []byte
}

// SetStatusString replaces the published status document.
func (h *Holder) SetStatusString(s []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = append(h.status[:0], s...)
}

// StatusString returns a copy of the published status document.
func (h *Holder) StatusString() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.status) == 0 {
		return nil
	}
	out := make([]byte, len(h.status))
	copy(out, h.status)
	return out
}

// RateLimiter tracks the last query time per peer address. A peer is
// admitted when it has no record younger than the interval; stale
// records are compacted away on every check so the slice stays bounded
// by the number of distinct recent peers.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	records  []statusRecord
}

type statusRecord struct {
	address string
	when    time.Time
}

// NewRateLimiter builds a limiter with the given minimum interval
// between requests from one address.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Allow reports whether the address may be served now, recording the
// request when admitted.
func (r *RateLimiter) Allow(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.interval)

	recent := false
	keep := r.records[:0]
	for _, rec := range r.records {
		if rec.when.Before(cutoff) {
			continue
		}
		if rec.address == address {
			recent = true
		}
		keep = append(keep, rec)
	}
	r.records = keep

	if recent {
		return false
	}
	r.records = append(r.records, statusRecord{address: address, when: now})
	return true
}
