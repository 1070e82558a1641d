package viewport

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/style"
)

// MinHitRadius is the smallest pickable marker radius in pixels.
const MinHitRadius = 3

// Drawn is a feature as drawn in one render pass, with its resolved style
// and the selection state the style was resolved for.
type Drawn struct {
	Feature  *feature.Feature
	Style    style.Style
	Selected bool
}

// HitTest returns the topmost drawn feature under px, or nil. Later entries
// are drawn on top of earlier ones.
func HitTest(v Viewport, px orb.Point, drawn []Drawn) *feature.Feature {
	for i := len(drawn) - 1; i >= 0; i-- {
		if hits(v, px, drawn[i]) {
			return drawn[i].Feature
		}
	}
	return nil
}

func hits(v Viewport, px orb.Point, d Drawn) bool {
	g := d.Feature.Geometry
	if g == nil {
		return false
	}
	tol := math.Max(d.Style.StrokeWidth/2, 1) + 2

	switch geom := g.(type) {
	case orb.Point:
		r := math.Max(d.Style.Radius, MinHitRadius) + d.Style.StrokeWidth/2
		return planar.Distance(v.ToPixel(geom), px) <= r
	case orb.MultiPoint:
		r := math.Max(d.Style.Radius, MinHitRadius) + d.Style.StrokeWidth/2
		for _, p := range geom {
			if planar.Distance(v.ToPixel(p), px) <= r {
				return true
			}
		}
		return false
	case orb.Polygon:
		pg := v.Project(geom).(orb.Polygon)
		return planar.PolygonContains(pg, px) || planar.DistanceFrom(pg, px) <= tol
	case orb.MultiPolygon:
		pg := v.Project(geom).(orb.MultiPolygon)
		return planar.MultiPolygonContains(pg, px) || planar.DistanceFrom(pg, px) <= tol
	default:
		return planar.DistanceFrom(v.Project(g), px) <= tol
	}
}
