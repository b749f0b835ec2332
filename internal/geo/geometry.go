package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/artylery/smash/pkg/core"
)

// GeoJSON coordinates are [lon, lat], so X carries longitude and Y latitude.

// DefaultCircleSegments is the number of ring vertices used to approximate a circle.
const DefaultCircleSegments = 64

// ErrNotLineString is returned when decoded geometry is not a line.
var ErrNotLineString = errors.New("geometry is not a LineString")

// LineString converts an ordered point sequence into a simplefeatures
// LineString. Fewer than two distinct points is an error.
func LineString(points []core.GeoPoint) (geom.LineString, error) {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Longitude, p.Latitude)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("build linestring: %w", err)
	}
	return ls, nil
}

// Point converts a GeoPoint into a simplefeatures Point.
func Point(p core.GeoPoint) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.Longitude, Y: p.Latitude},
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("build point %s: %w", p, err)
	}
	return pt, nil
}

// CircleRing returns a closed ring of geodesic destination points around center.
func CircleRing(center core.GeoPoint, radiusMeters float64, segments int) []core.GeoPoint {
	if segments < 3 {
		segments = DefaultCircleSegments
	}
	ring := make([]core.GeoPoint, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 360 * float64(i) / float64(segments)
		ring = append(ring, Destination(center, bearing, radiusMeters))
	}
	return append(ring, ring[0])
}

// CirclePolygon approximates a geodesic circle as a polygon.
func CirclePolygon(center core.GeoPoint, radiusMeters float64, segments int) (geom.Polygon, error) {
	ring, err := LineString(CircleRing(center, radiusMeters, segments))
	if err != nil {
		return geom.Polygon{}, err
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("build circle polygon: %w", err)
	}
	return poly, nil
}

// PointsFromLineString extracts the vertices of a LineString as GeoPoints.
func PointsFromLineString(ls geom.LineString) []core.GeoPoint {
	seq := ls.Coordinates()
	out := make([]core.GeoPoint, seq.Length())
	for i := range out {
		xy := seq.GetXY(i)
		out[i] = core.NewGeoPoint(xy.Y, xy.X)
	}
	return out
}

// DecodeLineString parses a GeoJSON geometry object that must be a LineString.
func DecodeLineString(raw []byte) ([]core.GeoPoint, error) {
	g, err := geom.UnmarshalGeoJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotLineString, g.Type())
	}
	return PointsFromLineString(ls), nil
}

// PrimitiveGeometry maps an overlay primitive onto a geometry. Pending routes
// have no geometry of their own, so they map to the origin/destination pair.
func PrimitiveGeometry(p core.Primitive, segments int) (geom.Geometry, error) {
	switch p.Kind {
	case core.KindPolyline:
		ls, err := LineString(p.Points)
		if err != nil {
			return geom.Geometry{}, err
		}
		return ls.AsGeometry(), nil
	case core.KindCircle:
		poly, err := CirclePolygon(p.Center, p.RadiusMeters, segments)
		if err != nil {
			return geom.Geometry{}, err
		}
		return poly.AsGeometry(), nil
	case core.KindPendingRoute:
		origin, err := Point(p.Origin)
		if err != nil {
			return geom.Geometry{}, err
		}
		destination, err := Point(p.Destination)
		if err != nil {
			return geom.Geometry{}, err
		}
		return geom.NewMultiPoint([]geom.Point{origin, destination}).AsGeometry(), nil
	default:
		return geom.Geometry{}, fmt.Errorf("unknown primitive kind %q", p.Kind)
	}
}

// FeatureCollection renders an overlay set as GeoJSON features, one per
// primitive, carrying kind/role/layer as properties.
func FeatureCollection(prims []core.Primitive, segments int) (geom.GeoJSONFeatureCollection, error) {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(prims))
	for i, p := range prims {
		props := map[string]interface{}{
			"kind":  string(p.Kind),
			"role":  string(p.Role),
			"layer": int(p.Layer),
		}
		switch p.Kind {
		case core.KindCircle:
			props["radiusMeters"] = p.RadiusMeters
		case core.KindPendingRoute:
			props["requestId"] = p.RequestID
		}
		g, err := PrimitiveGeometry(p, segments)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			ID:         i,
			Geometry:   g,
			Properties: props,
		})
	}
	return fc, nil
}
