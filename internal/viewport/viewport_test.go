package viewport

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/style"
)

var view = Viewport{Center: orb.Point{44.002, 56.3287}, Zoom: 11, Width: 800, Height: 600}

func TestCenterIsMiddlePixel(t *testing.T) {
	px := view.ToPixel(view.Center)
	assert.InDelta(t, 400, px[0], 1e-6)
	assert.InDelta(t, 300, px[1], 1e-6)
}

func TestPixelRoundTrip(t *testing.T) {
	ll := orb.Point{44.05, 56.30}
	back := view.ToLonLat(view.ToPixel(ll))
	assert.InDelta(t, ll[0], back[0], 1e-9)
	assert.InDelta(t, ll[1], back[1], 1e-9)
}

func TestResolutionHalvesPerZoom(t *testing.T) {
	z0 := Viewport{Zoom: 0}
	z1 := Viewport{Zoom: 1}
	assert.InDelta(t, 156543.03, z0.Resolution(), 0.01)
	assert.InDelta(t, z0.Resolution()/2, z1.Resolution(), 1e-9)
}

func TestBound(t *testing.T) {
	b := view.Bound()
	assert.True(t, b.Contains(view.Center))
	assert.Less(t, b.Min[0], b.Max[0])
	assert.Less(t, b.Min[1], b.Max[1])
}

func TestHitTestPicksTopmost(t *testing.T) {
	under := feature.New(view.Center, nil)
	over := feature.New(view.Center, nil)
	far := feature.New(view.ToLonLat(orb.Point{700, 100}), nil)
	st := style.Style{Radius: 10, StrokeWidth: 1}
	drawn := []Drawn{{Feature: under, Style: st}, {Feature: over, Style: st}, {Feature: far, Style: st}}

	assert.Same(t, over, HitTest(view, orb.Point{405, 300}, drawn))
	assert.Same(t, far, HitTest(view, orb.Point{700, 108}, drawn))
	assert.Nil(t, HitTest(view, orb.Point{100, 500}, drawn))
	assert.Nil(t, HitTest(view, orb.Point{412, 300}, drawn), "outside radius")
}

func TestHitTestPolygonAndLine(t *testing.T) {
	ring := orb.Ring{
		view.ToLonLat(orb.Point{100, 100}),
		view.ToLonLat(orb.Point{200, 100}),
		view.ToLonLat(orb.Point{200, 200}),
		view.ToLonLat(orb.Point{100, 200}),
		view.ToLonLat(orb.Point{100, 100}),
	}
	poly := feature.New(orb.Polygon{ring}, nil)
	line := feature.New(orb.LineString{
		view.ToLonLat(orb.Point{300, 400}),
		view.ToLonLat(orb.Point{500, 400}),
	}, nil)
	drawn := []Drawn{{Feature: poly}, {Feature: line}}

	require.Same(t, poly, HitTest(view, orb.Point{150, 150}, drawn))
	assert.Same(t, line, HitTest(view, orb.Point{400, 401}, drawn))
	assert.Nil(t, HitTest(view, orb.Point{400, 420}, drawn))
	assert.Nil(t, HitTest(view, orb.Point{250, 150}, drawn))
}

func TestValidate(t *testing.T) {
	ok := Viewport{Center: orb.Point{44, 56}, Zoom: 11, Width: 800, Height: 600}
	assert.NoError(t, ok.Validate())

	for _, v := range []Viewport{
		{Center: ok.Center, Zoom: 1e6, Width: 800, Height: 600},
		{Center: ok.Center, Zoom: -1, Width: 800, Height: 600},
		{Center: ok.Center, Zoom: math.NaN(), Width: 800, Height: 600},
		{Center: ok.Center, Zoom: 11, Width: 0, Height: 600},
		{Center: ok.Center, Zoom: 11, Width: 800, Height: -5},
		{Center: orb.Point{math.Inf(1), 0}, Zoom: 11, Width: 800, Height: 600},
	} {
		assert.ErrorIs(t, v.Validate(), ErrInvalidViewport, "%+v", v)
	}
}
