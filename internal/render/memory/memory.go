// Package memory implements render.Sink by recording primitives in memory.
// The console uses it to print and export the current overlay set.
package memory

import (
	"sync"

	"github.com/artylery/smash/pkg/core"
)

// Op is one call received by the sink, in arrival order.
type Op struct {
	Clear     bool
	Primitive core.Primitive
}

// Sink holds the current overlay set plus a log of every operation.
type Sink struct {
	mu      sync.RWMutex
	current []core.Primitive
	ops     []Op
}

// New creates an empty sink.
func New() *Sink {
	return &Sink{}
}

// Clear drops every primitive.
func (s *Sink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.ops = append(s.ops, Op{Clear: true})
	return nil
}

// Add appends a primitive to the current set.
func (s *Sink) Add(p core.Primitive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = append(s.current, p)
	s.ops = append(s.ops, Op{Primitive: p})
	return nil
}

// Primitives returns a copy of the current set.
func (s *Sink) Primitives() []core.Primitive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Primitive, len(s.current))
	copy(out, s.current)
	return out
}

// Ops returns a copy of the operation log.
func (s *Sink) Ops() []Op {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// Len returns the number of primitives currently held.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.current)
}
