package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artylery/smash/pkg/core"
)

func TestLineString_AxisOrder(t *testing.T) {
	points := []core.GeoPoint{core.NewGeoPoint(50.4, 30.5), core.NewGeoPoint(50.5, 30.6)}

	ls, err := LineString(points)
	require.NoError(t, err)
	xy := ls.Coordinates().GetXY(0)
	assert.Equal(t, 30.5, xy.X)
	assert.Equal(t, 50.4, xy.Y)

	assert.Equal(t, points, PointsFromLineString(ls))
}

func TestCircleRing(t *testing.T) {
	center := core.NewGeoPoint(50.43709, 10.40787)
	ring := CircleRing(center, 40, 16)

	require.Len(t, ring, 17)
	assert.Equal(t, ring[0], ring[16])
	for _, p := range ring {
		assert.InDelta(t, 40, Distance(center, p), 1e-6)
	}
}

func TestCircleRing_DefaultsSegments(t *testing.T) {
	ring := CircleRing(core.NewGeoPoint(0, 0), 100, 0)
	assert.Len(t, ring, DefaultCircleSegments+1)
}

func TestCirclePolygon(t *testing.T) {
	poly, err := CirclePolygon(core.NewGeoPoint(0, 0), 100, 8)
	require.NoError(t, err)
	assert.Equal(t, 9, poly.ExteriorRing().Coordinates().Length())
}

func TestDecodeLineString(t *testing.T) {
	raw := []byte(`{"type":"LineString","coordinates":[[30.5,50.4],[30.55,50.45],[30.6,50.5]]}`)

	points, err := DecodeLineString(raw)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, core.NewGeoPoint(50.4, 30.5), points[0])
	assert.Equal(t, core.NewGeoPoint(50.5, 30.6), points[2])
}

func TestDecodeLineString_WrongType(t *testing.T) {
	_, err := DecodeLineString([]byte(`{"type":"Point","coordinates":[30.5,50.4]}`))
	assert.ErrorIs(t, err, ErrNotLineString)
}

func TestLineString_SinglePointIsError(t *testing.T) {
	_, err := LineString([]core.GeoPoint{core.NewGeoPoint(50.4, 30.5)})
	assert.Error(t, err)
}

func TestFeatureCollection_PropagatesGeometryError(t *testing.T) {
	prims := []core.Primitive{
		core.NewPolyline(core.RoleShotLine, core.LayerLine, []core.GeoPoint{core.NewGeoPoint(50.4, 30.5)}),
	}
	_, err := FeatureCollection(prims, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature 0")
}

func TestDecodeLineString_Garbage(t *testing.T) {
	_, err := DecodeLineString([]byte(`not json`))
	assert.Error(t, err)
}

func TestFeatureCollection(t *testing.T) {
	p1 := core.NewGeoPoint(50.40, 30.50)
	p2 := core.NewGeoPoint(50.45, 30.55)
	prims := []core.Primitive{
		core.NewPolyline(core.RoleShotLine, core.LayerLine, []core.GeoPoint{p1, p2}),
		core.NewCircle(core.RoleDispersionFull, p2, 40),
		core.NewPendingRoute(7, p1, p2),
	}

	fc, err := FeatureCollection(prims, 8)
	require.NoError(t, err)
	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 3)
	assert.Equal(t, "LineString", decoded.Features[0].Geometry.Type)
	assert.Equal(t, "Polygon", decoded.Features[1].Geometry.Type)
	assert.Equal(t, "MultiPoint", decoded.Features[2].Geometry.Type)
	assert.Equal(t, "dispersion_full", decoded.Features[1].Properties["role"])
	assert.Equal(t, 40.0, decoded.Features[1].Properties["radiusMeters"])
	assert.Equal(t, 7.0, decoded.Features[2].Properties["requestId"])
}
