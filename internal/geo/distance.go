package geo

import (
	"math"

	"github.com/artylery/smash/pkg/core"
)

// EarthRadiusMeters is the IUGG mean earth radius.
const EarthRadiusMeters = 6_371_008.8

// Distance returns the great-circle surface distance in meters (haversine).
func Distance(a, b core.GeoPoint) float64 {
	φ1, φ2 := toRad(a.Latitude), toRad(b.Latitude)
	Δφ := toRad(b.Latitude - a.Latitude)
	Δλ := toRad(b.Longitude - a.Longitude)

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Destination walks distanceMeters from p along bearingDeg (clockwise from north).
func Destination(p core.GeoPoint, bearingDeg, distanceMeters float64) core.GeoPoint {
	δ := distanceMeters / EarthRadiusMeters
	θ := toRad(bearingDeg)
	φ1 := toRad(p.Latitude)
	λ1 := toRad(p.Longitude)

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))

	return core.NewGeoPoint(toDeg(φ2), normalizeLongitude(toDeg(λ2)))
}

func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+540, 360) - 180
	if lon == -180 {
		return 180
	}
	return lon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
