package targeting

import (
	"errors"
	"fmt"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/pkg/core"
)

// Dispersion model defaults: the spread grows linearly with range.
const (
	DefaultBaseRadiusMeters = 20.0
	DefaultRadiusPerKm      = 2.0
)

// RejectionReason explains why a pair of valid points produced no shot.
type RejectionReason int

const (
	OutOfRange RejectionReason = iota + 1
)

func (r RejectionReason) String() string {
	switch r {
	case OutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

// ErrRejected is the sentinel every RejectionError unwraps to.
var ErrRejected = errors.New("shot rejected")

// RejectionError is returned by Compute when the policy refuses the shot.
type RejectionError struct {
	Reason         RejectionReason
	DistanceMeters float64
	MaxRangeMeters float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: distance %.0f m exceeds %.0f m", e.Reason, e.DistanceMeters, e.MaxRangeMeters)
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}

// Params holds the dispersion model constants.
type Params struct {
	BaseRadiusMeters float64
	RadiusPerKm      float64
}

// DefaultParams returns the 20 m + 2 m/km model.
func DefaultParams() Params {
	return Params{
		BaseRadiusMeters: DefaultBaseRadiusMeters,
		RadiusPerKm:      DefaultRadiusPerKm,
	}
}

// Engine turns two parsed points into a ShotInfo. It is stateless apart from
// its constants and safe for concurrent use.
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given dispersion model.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Params returns the engine's dispersion model.
func (e *Engine) Params() Params {
	return e.params
}

// DispersionRadius returns the spread in meters at the given range.
func (e *Engine) DispersionRadius(distanceMeters float64) float64 {
	return e.params.BaseRadiusMeters + e.params.RadiusPerKm*(distanceMeters/1000)
}

// Compute range-gates the pair and derives the dispersion radius.
// Callers must not invoke it without two parsed points.
func (e *Engine) Compute(origin, target core.GeoPoint, policy *Policy) (core.ShotInfo, error) {
	distance := geo.Distance(origin, target)

	if !policy.Accepts(distance) {
		return core.ShotInfo{}, &RejectionError{
			Reason:         OutOfRange,
			DistanceMeters: distance,
			MaxRangeMeters: policy.MaxRangeMeters,
		}
	}

	radius := e.DispersionRadius(distance)
	return core.ShotInfo{
		Origin:                 origin,
		Target:                 target,
		DistanceMeters:         distance,
		DispersionRadiusMeters: radius,
		HalfRadiusMeters:       radius / 2,
	}, nil
}
