package selection

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/feature"
)

type fakeLayer struct {
	owned   map[*feature.Feature]bool
	repaint int
}

func newFakeLayer(fs ...*feature.Feature) *fakeLayer {
	l := &fakeLayer{owned: map[*feature.Feature]bool{}}
	for _, f := range fs {
		l.owned[f] = true
	}
	return l
}

func (l *fakeLayer) Owns(f *feature.Feature) bool { return l.owned[f] }
func (l *fakeLayer) Changed()                     { l.repaint++ }

type recorder struct {
	calls [][]geojson.Properties
}

func (r *recorder) handle(props []geojson.Properties) {
	r.calls = append(r.calls, props)
}

func pts(n int) []*feature.Feature {
	out := make([]*feature.Feature, n)
	for i := range out {
		out[i] = feature.New(orb.Point{float64(i), 0}, geojson.Properties{"id": i})
	}
	return out
}

func TestMissOnEmptySelectionIsNoop(t *testing.T) {
	layer := newFakeLayer()
	rec := &recorder{}
	c := NewController(layer, true, rec.handle)

	for i := 0; i < 2; i++ {
		res := c.HandleClick(nil)
		assert.Equal(t, ActionNone, res.Action)
	}
	assert.Empty(t, c.Selected())
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, rec.calls)
	assert.Zero(t, layer.repaint)
}

func TestClickPoint(t *testing.T) {
	f := pts(1)[0]
	layer := newFakeLayer(f)
	rec := &recorder{}
	c := NewController(layer, false, rec.handle)

	res := c.HandleClick(f)

	assert.Equal(t, ActionSelected, res.Action)
	assert.True(t, f.Selected())
	assert.Equal(t, []*feature.Feature{f}, c.Selected())
	assert.Equal(t, Selected, c.State())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []geojson.Properties{{"id": 0}}, rec.calls[0])
	assert.Equal(t, 1, layer.repaint)
}

func TestClickClusterFansOut(t *testing.T) {
	ms := pts(3)
	cluster := feature.NewCluster(orb.Point{1, 0}, ms)
	layer := newFakeLayer(cluster)
	rec := &recorder{}
	c := NewController(layer, true, rec.handle)

	c.HandleClick(cluster)

	for _, m := range ms {
		assert.True(t, m.Selected())
	}
	assert.False(t, cluster.Selected())
	assert.Equal(t, ms, c.Selected())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []geojson.Properties{{"id": 0}, {"id": 1}, {"id": 2}}, rec.calls[0])
}

func TestSingleMemberClusterIsAPoint(t *testing.T) {
	ms := pts(1)
	wrapper := feature.NewCluster(orb.Point{}, ms)
	c := NewController(newFakeLayer(wrapper), true, nil)

	res := c.HandleClick(wrapper)

	require.Len(t, res.Features, 1)
	assert.Same(t, ms[0], c.Selected()[0])
	assert.True(t, ms[0].Selected())
}

func TestSelectingNewGroupClearsPrevious(t *testing.T) {
	a := pts(2)
	b := pts(3)
	ca := feature.NewCluster(orb.Point{}, a)
	cb := feature.NewCluster(orb.Point{}, b)
	layer := newFakeLayer(ca, cb)
	rec := &recorder{}
	c := NewController(layer, true, rec.handle)

	c.HandleClick(ca)
	c.HandleClick(cb)

	for _, f := range a {
		assert.False(t, f.Selected())
	}
	for _, f := range b {
		assert.True(t, f.Selected())
	}
	assert.Equal(t, b, c.Selected())
	assert.Len(t, rec.calls, 2)
	assert.Equal(t, 2, layer.repaint)
}

func TestMissClearsSelection(t *testing.T) {
	ms := pts(3)
	cluster := feature.NewCluster(orb.Point{}, ms)
	layer := newFakeLayer(cluster)
	rec := &recorder{}
	c := NewController(layer, true, rec.handle)

	c.HandleClick(cluster)
	res := c.HandleClick(nil)

	assert.Equal(t, ActionCleared, res.Action)
	assert.Equal(t, ms, res.Features)
	for _, m := range ms {
		assert.False(t, m.Selected())
	}
	assert.Empty(t, c.Selected())
	assert.Equal(t, Idle, c.State())
	assert.Len(t, rec.calls, 1, "a miss never calls the handler")
	assert.Equal(t, 2, layer.repaint)

	c.HandleClick(nil)
	assert.Equal(t, 2, layer.repaint, "second miss is a no-op")
}

func TestForeignHitIsAMiss(t *testing.T) {
	own := pts(1)[0]
	foreign := pts(1)[0]
	layer := newFakeLayer(own)
	rec := &recorder{}
	c := NewController(layer, false, rec.handle)

	res := c.HandleClick(foreign)
	assert.Equal(t, ActionNone, res.Action)
	assert.False(t, foreign.Selected())
	assert.Empty(t, rec.calls)

	c.HandleClick(own)
	res = c.HandleClick(foreign)
	assert.Equal(t, ActionCleared, res.Action)
	assert.False(t, own.Selected())
	assert.False(t, foreign.Selected())
	assert.Len(t, rec.calls, 1)
}

func TestReclickReselects(t *testing.T) {
	f := pts(1)[0]
	layer := newFakeLayer(f)
	rec := &recorder{}
	c := NewController(layer, false, rec.handle)

	c.HandleClick(f)
	res := c.HandleClick(f)

	assert.Equal(t, ActionSelected, res.Action)
	assert.True(t, f.Selected())
	assert.Len(t, rec.calls, 2)
}

func TestReset(t *testing.T) {
	f := pts(1)[0]
	layer := newFakeLayer(f)
	c := NewController(layer, false, nil)
	c.HandleClick(f)

	c.Reset()

	assert.False(t, f.Selected())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, layer.repaint)
}
