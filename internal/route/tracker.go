package route

import "sync/atomic"

// Tracker remembers the single latest route request. Any ID it issued before
// the latest one is stale.
type Tracker struct {
	latest atomic.Uint64
}

// Issue returns a new request ID and makes it the current one.
func (t *Tracker) Issue() uint64 {
	return t.latest.Add(1)
}

// Invalidate makes every outstanding request stale without issuing a new one.
func (t *Tracker) Invalidate() {
	t.latest.Add(1)
}

// IsCurrent reports whether id is the latest issued request.
func (t *Tracker) IsCurrent(id uint64) bool {
	return id != 0 && t.latest.Load() == id
}

// Current returns the latest value of the counter.
func (t *Tracker) Current() uint64 {
	return t.latest.Load()
}
