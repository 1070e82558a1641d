package yourmap

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/copystructure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-map/internal/selection"
	"github.com/joeblew999/plat-map/internal/style"
)

// DefaultLayer is the layer name used by single-layer options and by the
// layer-less Map methods.
const DefaultLayer = "main"

// BaseOptions configure the map itself.
type BaseOptions struct {
	DarkTheme bool      `mapstructure:"darkTheme" json:"darkTheme"`
	Target    string    `mapstructure:"target" json:"target"`
	Center    orb.Point `mapstructure:"center" json:"center"`
	Zoom      float64   `mapstructure:"zoom" json:"zoom"`
}

// baseKeys are the option keys that belong to BaseOptions.
var baseKeys = []string{"darkTheme", "target", "center", "zoom"}

// DefaultBaseOptions returns the built-in map options.
func DefaultBaseOptions() BaseOptions {
	return BaseOptions{
		DarkTheme: true,
		Target:    "map",
		Center:    orb.Point{44.002, 56.3287},
		Zoom:      11,
	}
}

// LayerOptions configure one layer.
type LayerOptions struct {
	// Source names a GeoJSON file; resolving it is up to the caller.
	Source     string          `mapstructure:"source"`
	Clustering *bool           `mapstructure:"clustering"`
	Distance   float64         `mapstructure:"distance"`
	Order      int             `mapstructure:"order"`
	Style      style.LayerSpec `mapstructure:"style"`

	Data     *geojson.FeatureCollection `mapstructure:"-"`
	Override style.Override             `mapstructure:"-"`
	Handler  selection.Handler          `mapstructure:"-"`
}

// IsClustering returns the clustering flag, on by default.
func (o LayerOptions) IsClustering() bool {
	return o.Clustering == nil || *o.Clustering
}

// Options is the full map configuration.
type Options struct {
	BaseOptions
	Layers map[string]LayerOptions
}

// LayerNames returns layer names sorted by order, then name.
func (o Options) LayerNames() []string {
	names := make([]string, 0, len(o.Layers))
	for name := range o.Layers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := o.Layers[names[i]], o.Layers[names[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return names[i] < names[j]
	})
	return names
}

// ParseOptions splits raw options into base options and layer options.
// Without a "layers" key every non-base key configures the single layer
// "main":
//
//	center: [44.0, 56.3]
//	source: points.geojson
//	clustering: true
//
// With a "layers" key each entry is one named layer.
func ParseOptions(raw map[string]any) (Options, error) {
	cp, err := copystructure.Copy(raw)
	if err != nil {
		return Options{}, fmt.Errorf("cloning options: %w", err)
	}
	rest, _ := cp.(map[string]any)
	if rest == nil {
		rest = map[string]any{}
	}

	base := map[string]any{}
	for _, k := range baseKeys {
		if v, ok := rest[k]; ok {
			base[k] = v
			delete(rest, k)
		}
	}

	opts := Options{BaseOptions: DefaultBaseOptions(), Layers: map[string]LayerOptions{}}
	if err := decode(base, &opts.BaseOptions); err != nil {
		return Options{}, fmt.Errorf("map options: %w", err)
	}

	layers, multi := rest["layers"]
	if !multi {
		var lo LayerOptions
		if err := decode(rest, &lo); err != nil {
			return Options{}, fmt.Errorf("layer %q: %w", DefaultLayer, err)
		}
		opts.Layers[DefaultLayer] = lo
		return opts, nil
	}

	delete(rest, "layers")
	if len(rest) > 0 {
		keys := make([]string, 0, len(rest))
		for k := range rest {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return Options{}, fmt.Errorf("unexpected options %v next to layers", keys)
	}
	entries, ok := layers.(map[string]any)
	if !ok {
		return Options{}, fmt.Errorf("layers must be a mapping, got %T", layers)
	}
	for name, v := range entries {
		m, ok := v.(map[string]any)
		if !ok && v != nil {
			return Options{}, fmt.Errorf("layer %q must be a mapping, got %T", name, v)
		}
		var lo LayerOptions
		if err := decode(m, &lo); err != nil {
			return Options{}, fmt.Errorf("layer %q: %w", name, err)
		}
		opts.Layers[name] = lo
	}
	return opts, nil
}

// LoadOptions reads options from a YAML file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Options{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ParseOptions(raw)
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
