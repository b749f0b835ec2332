// Package render defines the boundary to whatever draws overlays on a map.
package render

import "github.com/artylery/smash/pkg/core"

// Sink receives overlay primitives. Callers clear before applying a new set;
// the sink never sees partial updates of a previously added primitive.
type Sink interface {
	Clear() error
	Add(p core.Primitive) error
}

// Lifecycle is implemented by sinks that hold a connection.
type Lifecycle interface {
	Init() error
	Close() error
}

// Apply clears the sink and adds prims in order.
func Apply(s Sink, prims []core.Primitive) error {
	if err := s.Clear(); err != nil {
		return err
	}
	for _, p := range prims {
		if err := s.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Multi fans every operation out to several sinks in order. The first error
// stops the fan-out.
type Multi []Sink

// Clear clears every sink.
func (m Multi) Clear() error {
	for _, s := range m {
		if err := s.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Add adds p to every sink.
func (m Multi) Add(p core.Primitive) error {
	for _, s := range m {
		if err := s.Add(p); err != nil {
			return err
		}
	}
	return nil
}
