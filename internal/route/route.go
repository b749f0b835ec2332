// Package route resolves pending route requests against a routing backend
// and delivers only the latest result to the overlay sink.
package route

import (
	"context"
	"errors"
	"fmt"

	"github.com/artylery/smash/pkg/core"
)

// UserMessage is shown for every routing failure.
const UserMessage = "Route unavailable"

// Router computes a path between two points.
type Router interface {
	Route(ctx context.Context, origin, destination core.GeoPoint, mode core.TransportMode) ([]core.GeoPoint, error)
}

// ErrorKind classifies a routing failure.
type ErrorKind int

const (
	NoRoute ErrorKind = iota
	Network
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case NoRoute:
		return "no route"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by routers and the resolver.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "route: " + e.Kind.String()
	}
	return fmt.Sprintf("route: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to show for this failure.
func (e *Error) UserMessage() string {
	return UserMessage
}

// Classify wraps err as an *Error. Context deadline expiry becomes Timeout,
// an existing *Error is returned as is, anything else is a Network failure.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Err: err}
	}
	return &Error{Kind: Network, Err: err}
}
