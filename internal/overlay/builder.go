// Package overlay derives the declarative set of map primitives for a shot.
package overlay

import (
	"sync/atomic"

	"github.com/artylery/smash/pkg/core"
)

// IDSource hands out route request identifiers. Each call must return a
// value greater than any previous one.
type IDSource interface {
	Issue() uint64
}

// Options control which primitives Build emits.
type Options struct {
	Mode core.VisualizationMode
	// AnnotateEveryPoint places a dispersion circle pair on every input point
	// instead of only the last one.
	AnnotateEveryPoint bool
}

// Builder turns a shot and its point sequence into primitives.
type Builder struct {
	ids IDSource
}

// NewBuilder creates a builder that draws request IDs from ids. A nil source
// falls back to a private counter.
func NewBuilder(ids IDSource) *Builder {
	if ids == nil {
		ids = &counter{}
	}
	return &Builder{ids: ids}
}

// BuildShot builds the overlay for the shot's own origin and target.
func (b *Builder) BuildShot(shot core.ShotInfo, opts Options) []core.Primitive {
	return b.Build(shot, []core.GeoPoint{shot.Origin, shot.Target}, opts)
}

// Build returns the complete overlay set for points, replacing whatever was
// built before. Line output is the polyline followed by circle pairs; a route
// request, when asked for and possible, comes last.
func (b *Builder) Build(shot core.ShotInfo, points []core.GeoPoint, opts Options) []core.Primitive {
	if len(points) == 0 {
		return nil
	}

	var prims []core.Primitive

	if opts.Mode == core.ModeLine || opts.Mode == core.ModeBoth {
		prims = append(prims, lineLayer(shot, points, opts.AnnotateEveryPoint)...)
	}

	if (opts.Mode == core.ModeRoute || opts.Mode == core.ModeBoth) && len(points) >= 2 {
		prims = append(prims, core.NewPendingRoute(b.ids.Issue(), points[0], points[len(points)-1]))
	}

	return prims
}

func lineLayer(shot core.ShotInfo, points []core.GeoPoint, annotateEveryPoint bool) []core.Primitive {
	var prims []core.Primitive
	if len(points) >= 2 {
		prims = append(prims, core.NewPolyline(core.RoleShotLine, core.LayerLine, points))
	}

	if annotateEveryPoint {
		for _, p := range points {
			prims = append(prims, circlePair(shot, p)...)
		}
	} else {
		prims = append(prims, circlePair(shot, points[len(points)-1])...)
	}
	return prims
}

func circlePair(shot core.ShotInfo, center core.GeoPoint) []core.Primitive {
	return []core.Primitive{
		core.NewCircle(core.RoleDispersionFull, center, shot.DispersionRadiusMeters),
		core.NewCircle(core.RoleDispersionHalf, center, shot.HalfRadiusMeters),
	}
}

type counter struct {
	n atomic.Uint64
}

func (c *counter) Issue() uint64 {
	return c.n.Add(1)
}
