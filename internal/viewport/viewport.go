// Package viewport converts between screen pixels and geographic
// coordinates for a Web Mercator view, and hit-tests drawn features.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const tileSize = 256

// MaxZoom is the deepest zoom a view may have.
const MaxZoom = 28

// ErrInvalidViewport is returned by Validate.
var ErrInvalidViewport = errors.New("invalid viewport")

// Viewport is the visible window of a map.
type Viewport struct {
	Center orb.Point `json:"center" doc:"View center [lon, lat]" example:"[44.002,56.3287]"`
	Zoom   float64   `json:"zoom" minimum:"0" maximum:"28" doc:"View zoom level" example:"11"`
	Width  int       `json:"width" minimum:"1" doc:"Width in pixels" example:"1024"`
	Height int       `json:"height" minimum:"1" doc:"Height in pixels" example:"768"`
}

// Validate checks the bounds the JSON schema of Viewport declares, for
// views built from untyped input.
func (v Viewport) Validate() error {
	switch {
	case math.IsNaN(v.Zoom) || v.Zoom < 0 || v.Zoom > MaxZoom:
		return fmt.Errorf("%w: zoom %v outside [0, %d]", ErrInvalidViewport, v.Zoom, MaxZoom)
	case v.Width < 1 || v.Height < 1:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidViewport, v.Width, v.Height)
	case math.IsNaN(v.Center[0]) || math.IsInf(v.Center[0], 0) || math.IsNaN(v.Center[1]) || math.IsInf(v.Center[1], 0):
		return fmt.Errorf("%w: center %v", ErrInvalidViewport, v.Center)
	}
	return nil
}

// Resolution returns the size of one pixel in Web Mercator metres.
func (v Viewport) Resolution() float64 {
	return 2 * math.Pi * orb.EarthRadius / (tileSize * math.Exp2(v.Zoom))
}

// ToPixel projects a lon/lat point to screen pixels, origin top-left.
func (v Viewport) ToPixel(ll orb.Point) orb.Point {
	res := v.Resolution()
	c := project.WGS84.ToMercator(v.Center)
	m := project.WGS84.ToMercator(ll)
	return orb.Point{
		(m[0]-c[0])/res + float64(v.Width)/2,
		(c[1]-m[1])/res + float64(v.Height)/2,
	}
}

// ToLonLat converts a screen pixel to lon/lat.
func (v Viewport) ToLonLat(px orb.Point) orb.Point {
	res := v.Resolution()
	c := project.WGS84.ToMercator(v.Center)
	m := orb.Point{
		c[0] + (px[0]-float64(v.Width)/2)*res,
		c[1] - (px[1]-float64(v.Height)/2)*res,
	}
	return project.Mercator.ToWGS84(m)
}

// Bound returns the lon/lat bounds of the view.
func (v Viewport) Bound() orb.Bound {
	tl := v.ToLonLat(orb.Point{0, 0})
	br := v.ToLonLat(orb.Point{float64(v.Width), float64(v.Height)})
	return orb.Bound{
		Min: orb.Point{tl[0], br[1]},
		Max: orb.Point{br[0], tl[1]},
	}
}

// Project returns a copy of g in screen pixels.
func (v Viewport) Project(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), v.ToPixel)
}
