// Package style resolves the visual style of a rendered feature from its
// kind (point or cluster) and selection state.
package style

import (
	"fmt"
	"strconv"

	"github.com/joeblew999/plat-map/internal/feature"
)

// Style is a visual descriptor for one rendered feature. Clients draw it;
// the server never rasterizes.
type Style struct {
	Fill        string  `json:"fill,omitempty" doc:"Fill color (CSS)" example:"#558"`
	Stroke      string  `json:"stroke,omitempty" doc:"Stroke color (CSS)" example:"#fff"`
	StrokeWidth float64 `json:"strokeWidth,omitempty" doc:"Stroke width in pixels"`
	Radius      float64 `json:"radius,omitempty" doc:"Marker radius in pixels" example:"10"`
	Opacity     float64 `json:"opacity,omitempty" doc:"Opacity (0-1)"`
	Text        string  `json:"text,omitempty" doc:"Label drawn on the marker"`
	TextColor   string  `json:"textColor,omitempty" doc:"Label color (CSS)"`
}

// Func produces the style of a feature at a render resolution (map units
// per pixel).
type Func func(f *feature.Feature, resolution float64) Style

// State is the selection state used for lookup.
type State string

const (
	StatePlain    State = "plain"
	StateSelected State = "selected"
)

// StateOf returns the selection state of f for styling.
func StateOf(f *feature.Feature) State {
	if feature.IsSelected(f) {
		return StateSelected
	}
	return StatePlain
}

// Variant holds the plain and selected style functions of one kind.
type Variant struct {
	Plain    Func
	Selected Func
}

// Table maps every kind/state pair to a style function.
type Table struct {
	Point   Variant
	Cluster Variant
}

func (t *Table) variant(k feature.Kind) *Variant {
	switch k {
	case feature.KindPoint:
		return &t.Point
	case feature.KindCluster:
		return &t.Cluster
	}
	return nil
}

// Lookup returns the function for kind and state. It panics when the entry
// is missing; merging always leaves the table complete.
func (t *Table) Lookup(k feature.Kind, s State) Func {
	v := t.variant(k)
	if v == nil {
		panic(fmt.Sprintf("style: unknown kind %q", k))
	}
	var fn Func
	switch s {
	case StatePlain:
		fn = v.Plain
	case StateSelected:
		fn = v.Selected
	}
	if fn == nil {
		panic(fmt.Sprintf("style: no %s/%s variant", k, s))
	}
	return fn
}

const (
	defaultRadius        = 10
	defaultStroke        = "#fff"
	defaultFill          = "#558"
	defaultSelectedFill  = "#99C"
	defaultClusterText   = "#fff"
	defaultStrokeWidth   = 1.25
	defaultMarkerOpacity = 1
)

// ClusterLabel adds the member count of a cluster as the marker text.
func ClusterLabel(f *feature.Feature, s Style) Style {
	if feature.IsCluster(f) {
		s.Text = strconv.Itoa(len(f.Members()))
		if s.TextColor == "" {
			s.TextColor = defaultClusterText
		}
	}
	return s
}

func marker(fill string) Func {
	return func(f *feature.Feature, _ float64) Style {
		return ClusterLabel(f, Style{
			Fill:        fill,
			Stroke:      defaultStroke,
			StrokeWidth: defaultStrokeWidth,
			Radius:      defaultRadius,
			Opacity:     defaultMarkerOpacity,
		})
	}
}

// DefaultPlain and DefaultSelected are the built-in marker styles.
var (
	DefaultPlain    Func = marker(defaultFill)
	DefaultSelected Func = marker(defaultSelectedFill)
)

// Defaults returns a fresh, complete table of built-in styles.
func Defaults() Table {
	return Table{
		Point:   Variant{Plain: DefaultPlain, Selected: DefaultSelected},
		Cluster: Variant{Plain: DefaultPlain, Selected: DefaultSelected},
	}
}
