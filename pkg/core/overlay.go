// pkg/core/overlay.go
package core

import "fmt"

// VisualizationMode selects which overlay strategies run for a shot.
type VisualizationMode int

const (
	ModeLine VisualizationMode = iota
	ModeRoute
	ModeBoth
)

func (m VisualizationMode) String() string {
	switch m {
	case ModeLine:
		return "line"
	case ModeRoute:
		return "route"
	case ModeBoth:
		return "both"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseVisualizationMode maps "line", "route" (or "way") and "both" (or "all").
func ParseVisualizationMode(s string) (VisualizationMode, error) {
	switch s {
	case "line":
		return ModeLine, nil
	case "route", "way":
		return ModeRoute, nil
	case "both", "all":
		return ModeBoth, nil
	default:
		return ModeLine, fmt.Errorf("unknown visualization mode: %q", s)
	}
}

// PrimitiveKind tags the variant held by a Primitive.
type PrimitiveKind string

const (
	KindPolyline     PrimitiveKind = "polyline"
	KindCircle       PrimitiveKind = "circle"
	KindPendingRoute PrimitiveKind = "pending_route"
)

// Role names what a primitive means on the map.
type Role string

const (
	RoleShotLine       Role = "shot_line"
	RoleDispersionFull Role = "dispersion_full"
	RoleDispersionHalf Role = "dispersion_half"
	RoleRoute          Role = "route"
)

// Layer is an explicit z-order; higher layers draw above lower ones.
type Layer int

const (
	LayerRoads  Layer = 10
	LayerRoute  Layer = 20
	LayerLine   Layer = 30
	LayerCircle Layer = 40
)

// Primitive is a renderer-agnostic shape. Only the fields of its Kind are set.
type Primitive struct {
	Kind  PrimitiveKind `json:"kind"`
	Role  Role          `json:"role"`
	Layer Layer         `json:"layer"`

	// Polyline
	Points []GeoPoint `json:"points,omitempty"`

	// Circle
	Center       GeoPoint `json:"center"`
	RadiusMeters float64  `json:"radiusMeters,omitempty"`

	// PendingRoute
	RequestID   uint64   `json:"requestId,omitempty"`
	Origin      GeoPoint `json:"origin"`
	Destination GeoPoint `json:"destination"`
}

// NewPolyline copies points so later edits to the caller's slice cannot leak in.
func NewPolyline(role Role, layer Layer, points []GeoPoint) Primitive {
	cp := make([]GeoPoint, len(points))
	copy(cp, points)
	return Primitive{Kind: KindPolyline, Role: role, Layer: layer, Points: cp}
}

// NewCircle builds a circle primitive.
func NewCircle(role Role, center GeoPoint, radiusMeters float64) Primitive {
	return Primitive{Kind: KindCircle, Role: role, Layer: LayerCircle, Center: center, RadiusMeters: radiusMeters}
}

// NewPendingRoute builds a route request placeholder; it carries no geometry.
func NewPendingRoute(id uint64, origin, destination GeoPoint) Primitive {
	return Primitive{
		Kind:        KindPendingRoute,
		Role:        RoleRoute,
		Layer:       LayerRoute,
		RequestID:   id,
		Origin:      origin,
		Destination: destination,
	}
}

// TransportMode is passed through to the directions provider.
type TransportMode string

const (
	TransportAutomobile TransportMode = "automobile"
	TransportWalking    TransportMode = "walking"
)
