package feature

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(n int) []*Feature {
	out := make([]*Feature, n)
	for i := range out {
		out[i] = New(orb.Point{float64(i), 0}, geojson.Properties{"id": i})
	}
	return out
}

func TestIsCluster(t *testing.T) {
	ms := points(3)

	assert.False(t, IsCluster(nil))
	assert.False(t, IsCluster(ms[0]))
	assert.False(t, IsCluster(NewCluster(orb.Point{}, ms[:1])), "one member is a point")
	assert.True(t, IsCluster(NewCluster(orb.Point{}, ms)))

	assert.Equal(t, KindPoint, KindOf(NewCluster(orb.Point{}, ms[:1])))
	assert.Equal(t, KindCluster, KindOf(NewCluster(orb.Point{}, ms[:2])))
}

func TestNewClusterPanicsWithoutMembers(t *testing.T) {
	assert.Panics(t, func() { NewCluster(orb.Point{}, nil) })
}

func TestGroup(t *testing.T) {
	ms := points(3)
	c := NewCluster(orb.Point{1, 1}, ms)

	assert.Equal(t, ms, Group(c, true))
	assert.Equal(t, []*Feature{c}, Group(c, false))
	assert.Equal(t, []*Feature{ms[0]}, Group(ms[0], true))

	single := NewCluster(orb.Point{}, ms[1:2])
	assert.Equal(t, []*Feature{ms[1]}, Group(single, true))

	// The group is a copy; mutating it leaves the wrapper intact.
	g := Group(c, true)
	g[0] = nil
	assert.Same(t, ms[0], c.Members()[0])
}

func TestIsSelectedAggregatesMembers(t *testing.T) {
	ms := points(3)
	c := NewCluster(orb.Point{}, ms)
	assert.False(t, IsSelected(c))

	ms[2].SetSelected(true)
	assert.True(t, IsSelected(c))
	assert.False(t, c.Selected())

	ms[2].SetSelected(false)
	c.SetSelected(true)
	assert.True(t, IsSelected(c))
}

func TestFromCollection(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	a := geojson.NewFeature(orb.Point{44, 56})
	a.ID = 7
	a.Properties["status"] = "open"
	fc.Append(a)
	fc.Append(&geojson.Feature{Type: "Feature"}) // no geometry, dropped
	fc.Append(geojson.NewFeature(orb.Point{45, 57}))

	fs := FromCollection(fc)
	require.Len(t, fs, 2)
	assert.Equal(t, "7", fs[0].ID)
	assert.Equal(t, "open", fs[0].Properties["status"])
	assert.NotEmpty(t, fs[1].ID)
	assert.Nil(t, FromCollection(nil))
}

func TestPropertiesOfCopies(t *testing.T) {
	ms := points(2)
	props := PropertiesOf(ms)
	require.Len(t, props, 2)
	assert.Equal(t, 1, props[1]["id"])

	props[0]["id"] = 99
	assert.Equal(t, 0, ms[0].Properties["id"])
}
