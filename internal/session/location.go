package session

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/artylery/smash/pkg/core"
)

// ErrNoLocation is returned when no location fix is available.
var ErrNoLocation = errors.New("no location fix available")

// LocationProvider supplies the device's current position.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (core.GeoPoint, error)
}

// StaticLocation is a LocationProvider with a fixed position.
type StaticLocation struct {
	Point core.GeoPoint
}

// CurrentLocation returns the fixed position.
func (s StaticLocation) CurrentLocation(context.Context) (core.GeoPoint, error) {
	return s.Point, nil
}

// NoLocation always fails with ErrNoLocation.
type NoLocation struct{}

// CurrentLocation returns ErrNoLocation.
func (NoLocation) CurrentLocation(context.Context) (core.GeoPoint, error) {
	return core.GeoPoint{}, ErrNoLocation
}

// locationInput renders p as an input in format f, readable by the matching parser.
func locationInput(p core.GeoPoint, f InputFormat) Input {
	switch f {
	case FormatFields:
		return FieldInput(formatFloat(p.Latitude), formatFloat(p.Longitude))
	case FormatCardinal:
		ns, ew := "N", "E"
		if p.Latitude < 0 {
			ns = "S"
		}
		if p.Longitude < 0 {
			ew = "W"
		}
		return TextInput(formatFloat(math.Abs(p.Latitude)) + "° " + ns + ", " +
			formatFloat(math.Abs(p.Longitude)) + "° " + ew)
	default:
		return TextInput(p.String())
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
