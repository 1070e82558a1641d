package yourmap

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/selection"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/joeblew999/plat-map/internal/viewport"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func threeClose() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range []orb.Point{{44.0020, 56.3250}, {44.0021, 56.3251}, {44.0022, 56.3250}} {
		f := geojson.NewFeature(p)
		f.Properties["id"] = i
		fc.Append(f)
	}
	return fc
}

func view() viewport.Viewport {
	return viewport.Viewport{Center: orb.Point{44.0021, 56.32503}, Zoom: 11, Width: 800, Height: 600}
}

func TestClusterClickScenario(t *testing.T) {
	var calls [][]geojson.Properties
	m, err := New(Options{
		BaseOptions: DefaultBaseOptions(),
		Layers: map[string]LayerOptions{
			DefaultLayer: {
				Data:    threeClose(),
				Handler: func(p []geojson.Properties) { calls = append(calls, p) },
			},
		},
	}, WithLogger(quiet))
	require.NoError(t, err)

	res := m.Click(view(), orb.Point{400, 300})
	require.NotNil(t, res.Hit)
	assert.Equal(t, DefaultLayer, res.Layer)
	assert.True(t, feature.IsCluster(res.Hit))
	require.Len(t, calls, 1)
	assert.Equal(t, []geojson.Properties{{"id": 0}, {"id": 1}, {"id": 2}}, calls[0])

	main, err := m.Layer(DefaultLayer)
	require.NoError(t, err)
	selected := main.Selected()
	require.Len(t, selected, 3)
	for _, f := range selected {
		assert.True(t, f.Selected())
	}

	// The next render styles the cluster as selected.
	drawn := main.Render(view())
	require.Len(t, drawn, 1)
	assert.Equal(t, "3", drawn[0].Style.Text)
	assert.Equal(t, style.DefaultSelected(drawn[0].Feature, 1).Fill, drawn[0].Style.Fill)

	res = m.Click(view(), orb.Point{10, 10})
	assert.Nil(t, res.Hit)
	assert.Equal(t, selection.ActionCleared, res.Results[DefaultLayer].Action)
	for _, f := range selected {
		assert.False(t, f.Selected())
	}
	assert.Len(t, calls, 1, "miss does not call the handler")
}

func TestClickOnOtherLayerIsMiss(t *testing.T) {
	lower := geojson.NewFeatureCollection()
	lower.Append(geojson.NewFeature(orb.Point{44.0021, 56.32503}))
	upper := geojson.NewFeatureCollection()
	far := geojson.NewFeature(view().ToLonLat(orb.Point{700, 100}))
	far.Properties["name"] = "far"
	upper.Append(far)

	no := false
	m, err := New(Options{
		BaseOptions: DefaultBaseOptions(),
		Layers: map[string]LayerOptions{
			"lower": {Data: lower, Clustering: &no, Order: 0},
			"upper": {Data: upper, Clustering: &no, Order: 1},
		},
	}, WithLogger(quiet))
	require.NoError(t, err)

	res := m.Click(view(), orb.Point{400, 300})
	assert.Equal(t, "lower", res.Layer)
	assert.Equal(t, selection.ActionSelected, res.Results["lower"].Action)
	assert.Equal(t, selection.ActionNone, res.Results["upper"].Action)

	res = m.Click(view(), orb.Point{700, 100})
	assert.Equal(t, "upper", res.Layer)
	assert.Equal(t, selection.ActionCleared, res.Results["lower"].Action)
	assert.Equal(t, selection.ActionSelected, res.Results["upper"].Action)

	upperLayer, _ := m.Layer("upper")
	props := upperLayer.SelectedProperties()
	require.Len(t, props, 1)
	assert.Equal(t, "far", props[0]["name"])
}

func TestRepaintRevisions(t *testing.T) {
	var seen []uint64
	m, err := New(Options{
		BaseOptions: DefaultBaseOptions(),
		Layers:      map[string]LayerOptions{DefaultLayer: {Data: threeClose()}},
	}, WithLogger(quiet), WithChangeListener(func(layer string, rev uint64) {
		assert.Equal(t, DefaultLayer, layer)
		seen = append(seen, rev)
	}))
	require.NoError(t, err)

	m.Click(view(), orb.Point{10, 10}) // miss on empty selection: no repaint
	m.Click(view(), orb.Point{400, 300})
	m.Click(view(), orb.Point{10, 10})
	require.NoError(t, m.SetStyles(style.Uniform(style.DefaultSelected)))

	assert.Equal(t, []uint64{1, 2, 3}, seen)
	l, _ := m.Layer(DefaultLayer)
	assert.Equal(t, uint64(3), l.Revision())
}

func TestClickIsAtomicWithConcurrentRenders(t *testing.T) {
	m, err := New(Options{
		BaseOptions: DefaultBaseOptions(),
		Layers:      map[string]LayerOptions{DefaultLayer: {Data: threeClose()}},
	}, WithLogger(quiet))
	require.NoError(t, err)
	l, _ := m.Layer(DefaultLayer)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, v := range []viewport.Viewport{view(), {Center: orb.Point{0, 0}, Zoom: 3, Width: 256, Height: 256}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					l.Render(v)
					m.Render(v)
				}
			}
		}()
	}

	lost := 0
	for range 2000 {
		res := m.Click(view(), orb.Point{400, 300})
		require.NotNil(t, res.Hit)
		if res.Results[DefaultLayer].Action != selection.ActionSelected {
			lost++
		}
		assert.Equal(t, l.Revision(), res.Revisions[DefaultLayer])
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, lost, "a hit on the layer must always select")
	assert.Len(t, l.Selected(), 3)
}

func TestDataOperations(t *testing.T) {
	m, err := New(Options{
		BaseOptions: DefaultBaseOptions(),
		Layers:      map[string]LayerOptions{DefaultLayer: {}},
	}, WithLogger(quiet))
	require.NoError(t, err)
	l, _ := m.Layer(DefaultLayer)

	require.NoError(t, m.AddData(threeClose()))
	require.NoError(t, m.AddData(threeClose()))
	assert.Equal(t, 6, l.Len())

	m.Click(view(), orb.Point{400, 300})
	assert.Len(t, l.Selected(), 6)

	require.NoError(t, m.SetData(threeClose()))
	assert.Equal(t, 3, l.Len())
	assert.Empty(t, l.Selected(), "replacing data drops the selection")

	require.NoError(t, m.ClearData())
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Render(view()))

	assert.ErrorIs(t, m.SetData(threeClose(), "nope"), ErrLayerNotFound)
	assert.ErrorIs(t, m.ClearData("nope"), ErrLayerNotFound)
}

func TestSetStylesPerLayer(t *testing.T) {
	m, err := New(Options{
		BaseOptions: DefaultBaseOptions(),
		Layers:      map[string]LayerOptions{DefaultLayer: {Data: threeClose()}},
	}, WithLogger(quiet))
	require.NoError(t, err)

	err = m.SetStyles(style.PerKind{feature.KindCluster: {Plain: func(*feature.Feature, float64) style.Style {
		return style.Style{Fill: "#0f0"}
	}}})
	require.NoError(t, err)

	rendered := m.Render(view())
	require.Len(t, rendered, 1)
	require.Len(t, rendered[0].Drawn, 1)
	assert.Equal(t, "#0f0", rendered[0].Drawn[0].Style.Fill)

	assert.ErrorIs(t, m.SetStyles(style.Uniform(nil)), style.ErrInvalidOverride)
}

func TestLayerManagement(t *testing.T) {
	m, err := New(Options{BaseOptions: DefaultBaseOptions()}, WithLogger(quiet))
	require.NoError(t, err)

	require.NoError(t, m.AddLayer("b", LayerOptions{Order: 1}))
	require.NoError(t, m.AddLayer("a", LayerOptions{Order: 1}))
	require.NoError(t, m.AddLayer("z", LayerOptions{}))
	assert.ErrorIs(t, m.AddLayer("a", LayerOptions{}), ErrLayerExists)

	v := m.View()
	assert.Equal(t, []string{"z", "a", "b"}, v.Layers)
	assert.NotEmpty(t, v.BaseFilter)

	require.NoError(t, m.RemoveLayer("a"))
	assert.ErrorIs(t, m.RemoveLayer("a"), ErrLayerNotFound)

	bad := LayerOptions{Style: style.LayerSpec{Point: &style.VariantSpec{Plain: &style.Spec{Opacity: 3}}}}
	assert.ErrorIs(t, m.AddLayer("bad", bad), style.ErrInvalidOverride)

	require.NoError(t, m.ReplaceLayer("z", LayerOptions{Data: threeClose()}))
	z, _ := m.Layer("z")
	assert.Equal(t, 3, z.Len())
	assert.ErrorIs(t, m.ReplaceLayer("z", bad), style.ErrInvalidOverride)
	kept, _ := m.Layer("z")
	assert.Same(t, z, kept, "a failed rebuild keeps the live layer")
}

func TestGenerateGeoJSON(t *testing.T) {
	fc := GenerateGeoJSON(50, rand.New(rand.NewPCG(1, 2)))
	require.Len(t, fc.Features, 50)
	for i, f := range fc.Features {
		assert.Equal(t, i, f.Properties["id"])
		assert.Contains(t, DemoStatuses, f.Properties["status"])
		assert.True(t, DemoBound.Contains(f.Geometry.(orb.Point)))
	}
}
