package style

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/feature"
)

func TestLayerSpecOverride(t *testing.T) {
	spec := LayerSpec{
		Point: &VariantSpec{
			Plain:    &Spec{Fill: "#3388ff", Label: "status"},
			Selected: &Spec{Fill: "#ff0000", Radius: 14},
		},
		Rules: []Rule{{FilterProp: "status", FilterValue: "Closed", Fill: "#999"}},
	}
	o, err := spec.Override()
	require.NoError(t, err)
	assert.NotContains(t, o, feature.KindCluster)

	r, err := NewResolver(o)
	require.NoError(t, err)

	open := feature.New(orb.Point{}, geojson.Properties{"status": "Open"})
	st := r.Resolve(open, 1)
	assert.Equal(t, "#3388ff", st.Fill)
	assert.Equal(t, "Open", st.Text)
	assert.Equal(t, defaultStroke, st.Stroke)

	closed := feature.New(orb.Point{}, geojson.Properties{"status": "Closed"})
	assert.Equal(t, "#999", r.Resolve(closed, 1).Fill)

	closed.SetSelected(true)
	st = r.Resolve(closed, 1)
	assert.Equal(t, "#ff0000", st.Fill)
	assert.Equal(t, 14.0, st.Radius)

	c := feature.NewCluster(orb.Point{}, []*feature.Feature{open, closed})
	st = r.Resolve(c, 1)
	assert.Equal(t, defaultSelectedFill, st.Fill, "cluster keeps defaults")
	assert.Equal(t, "2", st.Text)
}

func TestLayerSpecValidate(t *testing.T) {
	bad := []LayerSpec{
		{Point: &VariantSpec{Plain: &Spec{Opacity: 2}}},
		{Cluster: &VariantSpec{Selected: &Spec{Radius: -1}}},
		{Rules: []Rule{{Fill: "#000"}}},
	}
	for _, s := range bad {
		_, err := s.Override()
		assert.ErrorIs(t, err, ErrInvalidOverride)
	}
	assert.NoError(t, LayerSpec{}.Validate())
	assert.True(t, LayerSpec{}.IsZero())
}

func TestLayerSpecMerge(t *testing.T) {
	base := LayerSpec{
		Point:   &VariantSpec{Plain: &Spec{Fill: "#111"}, Selected: &Spec{Fill: "#222"}},
		Cluster: &VariantSpec{Plain: &Spec{Fill: "#333"}},
	}
	merged := base.Merge(LayerSpec{Point: &VariantSpec{Selected: &Spec{Fill: "#444"}}})

	assert.Equal(t, "#111", merged.Point.Plain.Fill)
	assert.Equal(t, "#444", merged.Point.Selected.Fill)
	assert.Equal(t, "#333", merged.Cluster.Plain.Fill)
	assert.Equal(t, "#222", base.Point.Selected.Fill, "receiver is not mutated")
}
