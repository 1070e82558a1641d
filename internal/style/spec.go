package style

import (
	"fmt"

	"github.com/joeblew999/plat-map/internal/feature"
)

// Spec is a declarative marker style. Zero fields fall back to the
// built-in marker for the variant being configured.
type Spec struct {
	Fill        string  `json:"fill,omitempty" yaml:"fill,omitempty" mapstructure:"fill" doc:"Fill color (CSS)" example:"#3388ff"`
	Stroke      string  `json:"stroke,omitempty" yaml:"stroke,omitempty" mapstructure:"stroke" doc:"Stroke color (CSS)" example:"#2266cc"`
	StrokeWidth float64 `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty" mapstructure:"strokeWidth" minimum:"0" doc:"Stroke width in pixels"`
	Radius      float64 `json:"radius,omitempty" yaml:"radius,omitempty" mapstructure:"radius" minimum:"0" doc:"Marker radius in pixels" example:"10"`
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty" mapstructure:"opacity" minimum:"0" maximum:"1" doc:"Opacity (0-1)" example:"0.8"`
	TextColor   string  `json:"textColor,omitempty" yaml:"textColor,omitempty" mapstructure:"textColor" doc:"Label color (CSS)"`
	Label       string  `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label" doc:"Property drawn as the label of a point" example:"status"`
}

// VariantSpec configures the plain and selected styles of one kind.
type VariantSpec struct {
	Plain    *Spec `json:"plain,omitempty" yaml:"plain,omitempty" mapstructure:"plain" doc:"Style when not selected"`
	Selected *Spec `json:"selected,omitempty" yaml:"selected,omitempty" mapstructure:"selected" doc:"Style when selected"`
}

// Rule restyles plain points whose property matches a value.
type Rule struct {
	FilterProp  string  `json:"filterProp" yaml:"filterProp" mapstructure:"filterProp" required:"true" minLength:"1" doc:"Property name to filter on" example:"status"`
	FilterValue string  `json:"filterValue,omitempty" yaml:"filterValue,omitempty" mapstructure:"filterValue" doc:"Value to match" example:"Closed"`
	Fill        string  `json:"fill,omitempty" yaml:"fill,omitempty" mapstructure:"fill" doc:"Fill color (CSS)"`
	Stroke      string  `json:"stroke,omitempty" yaml:"stroke,omitempty" mapstructure:"stroke" doc:"Stroke color (CSS)"`
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty" mapstructure:"opacity" minimum:"0" maximum:"1" doc:"Opacity (0-1)"`
	Width       float64 `json:"width,omitempty" yaml:"width,omitempty" mapstructure:"width" minimum:"0" doc:"Stroke width"`
	Radius      float64 `json:"radius,omitempty" yaml:"radius,omitempty" mapstructure:"radius" minimum:"0" doc:"Point radius"`
}

// LayerSpec is the declarative style configuration of a layer.
type LayerSpec struct {
	Point   *VariantSpec `json:"point,omitempty" yaml:"point,omitempty" mapstructure:"point" doc:"Styles of single points"`
	Cluster *VariantSpec `json:"cluster,omitempty" yaml:"cluster,omitempty" mapstructure:"cluster" doc:"Styles of clusters"`
	Rules   []Rule       `json:"rules,omitempty" yaml:"rules,omitempty" mapstructure:"rules" doc:"Conditional styles for plain points"`
}

// IsZero reports whether the spec configures nothing.
func (s LayerSpec) IsZero() bool {
	return s.Point == nil && s.Cluster == nil && len(s.Rules) == 0
}

func (s *Spec) validate() error {
	if s == nil {
		return nil
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return fmt.Errorf("%w: opacity %v out of range", ErrInvalidOverride, s.Opacity)
	}
	if s.Radius < 0 || s.StrokeWidth < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidOverride)
	}
	return nil
}

// Validate checks value ranges.
func (s LayerSpec) Validate() error {
	for _, v := range []*VariantSpec{s.Point, s.Cluster} {
		if v == nil {
			continue
		}
		if err := v.Plain.validate(); err != nil {
			return err
		}
		if err := v.Selected.validate(); err != nil {
			return err
		}
	}
	for i, r := range s.Rules {
		if r.FilterProp == "" {
			return fmt.Errorf("%w: rule %d has no filterProp", ErrInvalidOverride, i)
		}
		if r.Opacity < 0 || r.Opacity > 1 {
			return fmt.Errorf("%w: rule %d opacity out of range", ErrInvalidOverride, i)
		}
	}
	return nil
}

// Func compiles the spec over base.
func (s Spec) Func(base Func) Func {
	return func(f *feature.Feature, resolution float64) Style {
		st := base(f, resolution)
		if s.Fill != "" {
			st.Fill = s.Fill
		}
		if s.Stroke != "" {
			st.Stroke = s.Stroke
		}
		if s.StrokeWidth > 0 {
			st.StrokeWidth = s.StrokeWidth
		}
		if s.Radius > 0 {
			st.Radius = s.Radius
		}
		if s.Opacity > 0 {
			st.Opacity = s.Opacity
		}
		if s.TextColor != "" {
			st.TextColor = s.TextColor
		}
		if s.Label != "" && !feature.IsCluster(f) {
			if v, ok := f.Properties[s.Label]; ok {
				st.Text = fmt.Sprint(v)
			}
		}
		return st
	}
}

func (r Rule) matches(f *feature.Feature) bool {
	v, ok := f.Properties[r.FilterProp]
	if !ok {
		return false
	}
	return r.FilterValue == "" || fmt.Sprint(v) == r.FilterValue
}

func withRules(rules []Rule, base Func) Func {
	return func(f *feature.Feature, resolution float64) Style {
		st := base(f, resolution)
		for _, r := range rules {
			if !r.matches(f) {
				continue
			}
			if r.Fill != "" {
				st.Fill = r.Fill
			}
			if r.Stroke != "" {
				st.Stroke = r.Stroke
			}
			if r.Opacity > 0 {
				st.Opacity = r.Opacity
			}
			if r.Width > 0 {
				st.StrokeWidth = r.Width
			}
			if r.Radius > 0 {
				st.Radius = r.Radius
			}
			break
		}
		return st
	}
}

func (v *VariantSpec) variant() Variant {
	var out Variant
	if v == nil {
		return out
	}
	if v.Plain != nil {
		out.Plain = v.Plain.Func(DefaultPlain)
	}
	if v.Selected != nil {
		out.Selected = v.Selected.Func(DefaultSelected)
	}
	return out
}

// Override compiles the spec into a PerKind override. Only configured
// variants are present, so applying it is a partial merge.
func (s LayerSpec) Override() (PerKind, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := PerKind{}
	if s.Point != nil || len(s.Rules) > 0 {
		v := s.Point.variant()
		if len(s.Rules) > 0 {
			base := v.Plain
			if base == nil {
				base = DefaultPlain
			}
			v.Plain = withRules(s.Rules, base)
		}
		out[feature.KindPoint] = v
	}
	if s.Cluster != nil {
		out[feature.KindCluster] = s.Cluster.variant()
	}
	return out, nil
}

// Merge overlays other onto s field by field and returns the result.
func (s LayerSpec) Merge(other LayerSpec) LayerSpec {
	s.Point = mergeVariant(s.Point, other.Point)
	s.Cluster = mergeVariant(s.Cluster, other.Cluster)
	if len(other.Rules) > 0 {
		s.Rules = other.Rules
	}
	return s
}

func mergeVariant(a, b *VariantSpec) *VariantSpec {
	if b == nil {
		return a
	}
	if a == nil {
		cp := *b
		return &cp
	}
	out := *a
	if b.Plain != nil {
		out.Plain = b.Plain
	}
	if b.Selected != nil {
		out.Selected = b.Selected
	}
	return &out
}
