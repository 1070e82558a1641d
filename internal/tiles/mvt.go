// Package tiles encodes a layer's styled render set as Mapbox Vector Tiles,
// so map clients can draw clusters and selection state without the JSON
// render endpoint.
package tiles

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/viewport"
)

// ContentType is the media type of an encoded tile.
const ContentType = "application/vnd.mapbox-vector-tile"

// Size is the pixel size of a tile.
const Size = 256

// MaxZoom is the deepest zoom a tile is served for.
const MaxZoom = 24

// View returns the viewport that covers tile t exactly.
func View(t maptile.Tile) viewport.Viewport {
	b := t.Bound()
	lo := project.WGS84.ToMercator(b.Min)
	hi := project.WGS84.ToMercator(b.Max)
	center := project.Mercator.ToWGS84(orb.Point{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2})
	return viewport.Viewport{
		Center: center,
		Zoom:   float64(t.Z),
		Width:  Size,
		Height: Size,
	}
}

// Encode builds a gzipped MVT with one layer named name from drawn. It
// returns nil when nothing of drawn falls inside t.
func Encode(t maptile.Tile, name string, drawn []viewport.Drawn) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, d := range drawn {
		if d.Feature.Geometry == nil || !d.Feature.Geometry.Bound().Intersects(t.Bound()) {
			continue
		}
		// mvt clips and projects in place.
		gf := geojson.NewFeature(orb.Clone(d.Feature.Geometry))
		gf.Properties = properties(d)
		fc.Append(gf)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(name, fc)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(t.Bound())
	layer.ProjectToTile(t)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}
	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// properties flattens the scalar feature properties and the resolved style
// into tile attributes. Style keys are prefixed with "style_".
func properties(d viewport.Drawn) geojson.Properties {
	f := d.Feature
	src := f.Properties
	out := geojson.Properties{}
	if f.IsWrapper() {
		members := f.Members()
		out["count"] = len(members)
		if len(members) == 1 {
			src = members[0].Properties
		}
	}
	for k, v := range src {
		switch v.(type) {
		case string, bool, float64, float32, int, int64, int32, uint, uint64, uint32:
			out[k] = v
		}
	}

	out["feature_id"] = f.ID
	out["kind"] = string(feature.KindOf(f))
	out["selected"] = d.Selected

	st := d.Style
	for k, v := range map[string]string{
		"style_fill":       st.Fill,
		"style_stroke":     st.Stroke,
		"style_text":       st.Text,
		"style_text_color": st.TextColor,
	} {
		if v != "" {
			out[k] = v
		}
	}
	for k, v := range map[string]float64{
		"style_stroke_width": st.StrokeWidth,
		"style_radius":       st.Radius,
		"style_opacity":      st.Opacity,
	} {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// simplifyEpsilon returns the simplification tolerance in degrees for a
// zoom level. Points are unaffected.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 14:
		return 0
	case zoom >= 10:
		return 0.00001
	case zoom >= 6:
		return 0.0001
	default:
		return 0.0005
	}
}
