package targeting

import "sync/atomic"

// DefaultMaxRangeMeters is the range cap applied when unlimited range is off.
const DefaultMaxRangeMeters = 50_000.0

// Policy decides whether a computed distance is in range.
// The unlimited flag is process-wide configuration toggled from the control
// layer; MaxRangeMeters is fixed at construction.
type Policy struct {
	MaxRangeMeters float64
	unlimited      atomic.Bool
}

// NewPolicy creates a policy with the given cap. A non-positive cap falls back
// to DefaultMaxRangeMeters.
func NewPolicy(maxRangeMeters float64, unlimited bool) *Policy {
	if maxRangeMeters <= 0 {
		maxRangeMeters = DefaultMaxRangeMeters
	}
	p := &Policy{MaxRangeMeters: maxRangeMeters}
	p.unlimited.Store(unlimited)
	return p
}

// Accepts reports whether distanceMeters is within range. The cap is inclusive.
func (p *Policy) Accepts(distanceMeters float64) bool {
	if p.unlimited.Load() {
		return true
	}
	return distanceMeters <= p.MaxRangeMeters
}

// Unlimited reports whether the range cap is currently bypassed.
func (p *Policy) Unlimited() bool {
	return p.unlimited.Load()
}

// ToggleUnlimited flips the override and returns the new value.
func (p *Policy) ToggleUnlimited() bool {
	for {
		old := p.unlimited.Load()
		if p.unlimited.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetUnlimited sets the override explicitly.
func (p *Policy) SetUnlimited(v bool) {
	p.unlimited.Store(v)
}
