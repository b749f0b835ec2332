// pkg/core/point.go
package core

import (
	"fmt"
	"strconv"
)

// Legal WGS84 ranges in decimal degrees.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// GeoPoint is a WGS84 position in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// NewGeoPoint builds a GeoPoint without range checks.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{Latitude: lat, Longitude: lon}
}

// InRange reports whether both axes fall within the legal WGS84 bounds.
func (p GeoPoint) InRange() bool {
	return p.Latitude >= MinLatitude && p.Latitude <= MaxLatitude &&
		p.Longitude >= MinLongitude && p.Longitude <= MaxLongitude
}

// String formats the point the way the decimal-pair parser reads it: "(lat, lon)".
func (p GeoPoint) String() string {
	return fmt.Sprintf("(%s, %s)",
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
	)
}
