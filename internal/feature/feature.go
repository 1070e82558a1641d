// Package feature holds the logical and rendered feature model shared by
// selection and styling.
package feature

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Kind is the visual kind of a rendered feature.
type Kind string

const (
	KindPoint   Kind = "point"
	KindCluster Kind = "cluster"
)

// Kinds lists every kind in table order.
var Kinds = []Kind{KindPoint, KindCluster}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPoint || k == KindCluster
}

// Feature is one data point owned by a layer's store, or a cluster wrapper
// bundling several of them for rendering.
//
// Features are shared by pointer: the selection controller and the style
// resolver must see the same instance.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties geojson.Properties

	members  []*Feature
	selected bool
}

// New creates a logical feature with a fresh ID.
func New(geom orb.Geometry, props geojson.Properties) *Feature {
	if props == nil {
		props = geojson.Properties{}
	}
	return &Feature{
		ID:         uuid.NewString(),
		Geometry:   geom,
		Properties: props,
	}
}

// FromGeoJSON converts a parsed GeoJSON feature. The GeoJSON id is kept
// when present.
func FromGeoJSON(gf *geojson.Feature) *Feature {
	f := New(gf.Geometry, gf.Properties)
	if gf.ID != nil {
		f.ID = fmt.Sprint(gf.ID)
	}
	return f
}

// FromCollection converts every feature of a collection, in order.
func FromCollection(fc *geojson.FeatureCollection) []*Feature {
	if fc == nil {
		return nil
	}
	out := make([]*Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		if gf == nil || gf.Geometry == nil {
			continue
		}
		out = append(out, FromGeoJSON(gf))
	}
	return out
}

// NewCluster wraps members into a render-only cluster feature located at
// center. It panics if members is empty.
func NewCluster(center orb.Point, members []*Feature) *Feature {
	if len(members) == 0 {
		panic("feature: cluster wrapper without members")
	}
	return &Feature{
		ID:         "cluster:" + members[0].ID,
		Geometry:   center,
		Properties: geojson.Properties{"count": len(members)},
		members:    members,
	}
}

// Members returns the wrapped features of a cluster wrapper, or nil.
func (f *Feature) Members() []*Feature {
	return f.members
}

// IsWrapper reports whether f was built by NewCluster, whatever its size.
func (f *Feature) IsWrapper() bool {
	return f.members != nil
}

// Selected returns the feature's own selected flag.
func (f *Feature) Selected() bool {
	return f.selected
}

// SetSelected sets the feature's own selected flag.
func (f *Feature) SetSelected(v bool) {
	f.selected = v
}

// IsCluster reports whether f renders as a cluster: a wrapper with at least
// two members. A one-member wrapper is a point.
func IsCluster(f *Feature) bool {
	return f != nil && len(f.members) >= 2
}

// KindOf returns the visual kind of f.
func KindOf(f *Feature) Kind {
	if IsCluster(f) {
		return KindCluster
	}
	return KindPoint
}

// IsSelected reports the selection state used for styling: the feature's
// own flag, or for a wrapper whether any member is selected.
func IsSelected(f *Feature) bool {
	if f.selected {
		return true
	}
	for _, m := range f.members {
		if m.selected {
			return true
		}
	}
	return false
}

// Group returns the logical features selected together when f is clicked.
// With clustering on, a cluster fans out to its members. A one-member
// wrapper resolves to its member.
func Group(f *Feature, clustering bool) []*Feature {
	switch {
	case clustering && IsCluster(f):
		out := make([]*Feature, len(f.members))
		copy(out, f.members)
		return out
	case len(f.members) == 1:
		return []*Feature{f.members[0]}
	default:
		return []*Feature{f}
	}
}

// PropertiesOf returns a copy of each feature's property bag, in order.
func PropertiesOf(features []*Feature) []geojson.Properties {
	out := make([]geojson.Properties, len(features))
	for i, f := range features {
		out[i] = f.Properties.Clone()
	}
	return out
}
