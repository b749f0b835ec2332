package geo

import (
	"github.com/artylery/smash/pkg/core"
	"github.com/wroge/wgs84"
)

// WebMercator is a point in EPSG:3857 meters, the projection map tiles use.
type WebMercator struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var to3857 = wgs84.EPSG().Transform(4326, 3857)

// ToWebMercator projects a WGS84 point into EPSG:3857.
func ToWebMercator(p core.GeoPoint) WebMercator {
	x, y, _ := to3857(p.Longitude, p.Latitude, 0)
	return WebMercator{X: x, Y: y}
}

// ToWebMercatorAll projects a sequence, preserving order.
func ToWebMercatorAll(points []core.GeoPoint) []WebMercator {
	out := make([]WebMercator, len(points))
	for i, p := range points {
		out[i] = ToWebMercator(p)
	}
	return out
}
