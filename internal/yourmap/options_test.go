package yourmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleLayerOptions(t *testing.T) {
	raw := map[string]any{
		"darkTheme":  false,
		"zoom":       13,
		"source":     "points.geojson",
		"clustering": false,
		"style": map[string]any{
			"point": map[string]any{
				"selected": map[string]any{"fill": "#f00"},
			},
		},
	}

	opts, err := ParseOptions(raw)
	require.NoError(t, err)

	assert.False(t, opts.DarkTheme)
	assert.Equal(t, 13.0, opts.Zoom)
	assert.Equal(t, "map", opts.Target, "default kept")
	assert.Equal(t, orb.Point{44.002, 56.3287}, opts.Center)

	require.Contains(t, opts.Layers, DefaultLayer)
	main := opts.Layers[DefaultLayer]
	assert.Equal(t, "points.geojson", main.Source)
	assert.False(t, main.IsClustering())
	assert.Equal(t, "#f00", main.Style.Point.Selected.Fill)

	// The input was not modified.
	assert.Contains(t, raw, "darkTheme")
	assert.Contains(t, raw, "source")
}

func TestParseMultiLayerOptions(t *testing.T) {
	opts, err := ParseOptions(map[string]any{
		"center": []any{37.6, 55.75},
		"layers": map[string]any{
			"points": map[string]any{"source": "a.geojson", "order": 2},
			"lines":  map[string]any{"source": "b.geojson", "clustering": false, "order": 1},
			"empty":  nil,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, orb.Point{37.6, 55.75}, opts.Center)
	assert.Len(t, opts.Layers, 3)
	assert.True(t, opts.Layers["points"].IsClustering())
	assert.False(t, opts.Layers["lines"].IsClustering())
	assert.Equal(t, []string{"empty", "lines", "points"}, opts.LayerNames())
}

func TestParseOptionsErrors(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown layer key":   {"sauce": "x"},
		"junk next to layers": {"source": "x", "layers": map[string]any{}},
		"layers not a map":    {"layers": []any{"a"}},
		"layer not a map":     {"layers": map[string]any{"a": 3}},
		"bad zoom":            {"zoom": "far"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOptions(raw)
			assert.Error(t, err)
		})
	}
}

func TestLoadOptionsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
darkTheme: true
zoom: 12
layers:
  incidents:
    source: incidents.geojson
    distance: 40
    style:
      cluster:
        plain:
          fill: "#333"
      rules:
        - filterProp: status
          filterValue: Closed
          fill: "#999"
`), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	lo := opts.Layers["incidents"]
	assert.Equal(t, 40.0, lo.Distance)
	assert.Equal(t, "#333", lo.Style.Cluster.Plain.Fill)
	require.Len(t, lo.Style.Rules, 1)
	assert.Equal(t, "Closed", lo.Style.Rules[0].FilterValue)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
