// Package yourmap is a small interactive map model: named vector layers
// loaded from GeoJSON, clustered per view, styled per feature kind and
// selection state, and selectable by clicking at a pixel.
package yourmap

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/selection"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/joeblew999/plat-map/internal/viewport"
)

// ErrLayerNotFound is returned for an unknown layer name.
var ErrLayerNotFound = errors.New("layer not found")

// ErrLayerExists is returned when adding a layer under a taken name.
var ErrLayerExists = errors.New("layer already exists")

const (
	baseTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	darkFilter  = "invert(100%) grayscale(100%) brightness(100%) contrast(125%)"
)

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the map logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Map) { m.logger = l }
}

// WithChangeListener registers a repaint listener shared by every layer.
func WithChangeListener(fn ChangeFunc) Option {
	return func(m *Map) { m.onChange = fn }
}

// Map is a set of ordered layers over an OSM base layer.
type Map struct {
	base     BaseOptions
	logger   *slog.Logger
	onChange ChangeFunc

	mu     sync.RWMutex
	layers map[string]*Layer

	clickMu sync.Mutex
}

// New builds a map and its layers.
func New(opts Options, options ...Option) (*Map, error) {
	m := &Map{
		base:   opts.BaseOptions,
		logger: slog.Default(),
		layers: make(map[string]*Layer, len(opts.Layers)),
	}
	for _, o := range options {
		o(m)
	}
	for _, name := range opts.LayerNames() {
		if err := m.AddLayer(name, opts.Layers[name]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// View describes the map view and base layer.
type View struct {
	BaseOptions
	BaseTileURL string   `json:"baseTileUrl"`
	BaseFilter  string   `json:"baseFilter,omitempty"`
	Layers      []string `json:"layers"`
}

// View returns the initial view, the base layer and the layer order.
func (m *Map) View() View {
	v := View{BaseOptions: m.base, BaseTileURL: baseTileURL}
	if m.base.DarkTheme {
		v.BaseFilter = darkFilter
	}
	for _, l := range m.Layers() {
		v.Layers = append(v.Layers, l.Name())
	}
	return v
}

// AddLayer creates a layer.
func (m *Map) AddLayer(name string, opts LayerOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[name]; ok {
		return fmt.Errorf("%w: %q", ErrLayerExists, name)
	}
	l, err := NewLayer(name, opts, m.logger, m.onChange)
	if err != nil {
		return err
	}
	m.layers[name] = l
	return nil
}

// ReplaceLayer creates a layer, or swaps an existing one for a fresh
// build of opts. The old layer stays in place when opts fail to build.
func (m *Map) ReplaceLayer(name string, opts LayerOptions) error {
	l, err := NewLayer(name, opts, m.logger, m.onChange)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers[name] = l
	return nil
}

// RemoveLayer deletes a layer.
func (m *Map) RemoveLayer(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrLayerNotFound, name)
	}
	delete(m.layers, name)
	return nil
}

// Layer returns a layer by name.
func (m *Map) Layer(name string) (*Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, name)
	}
	return l, nil
}

// Layers returns the layers in draw order, bottom first.
func (m *Map) Layers() []*Layer {
	m.mu.RLock()
	out := make([]*Layer, 0, len(m.layers))
	for _, l := range m.layers {
		out = append(out, l)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order() != out[j].Order() {
			return out[i].Order() < out[j].Order()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

func layerName(names []string) string {
	if len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return DefaultLayer
}

// SetData replaces the data of a layer ("main" when no name is given).
func (m *Map) SetData(fc *geojson.FeatureCollection, layer ...string) error {
	l, err := m.Layer(layerName(layer))
	if err != nil {
		return err
	}
	l.SetData(fc)
	return nil
}

// AddData appends data to a layer ("main" when no name is given).
func (m *Map) AddData(fc *geojson.FeatureCollection, layer ...string) error {
	l, err := m.Layer(layerName(layer))
	if err != nil {
		return err
	}
	l.AddData(fc)
	return nil
}

// ClearData empties a layer ("main" when no name is given).
func (m *Map) ClearData(layer ...string) error {
	l, err := m.Layer(layerName(layer))
	if err != nil {
		return err
	}
	l.ClearData()
	return nil
}

// SetStyles merges a style override into a layer ("main" when no name is
// given).
func (m *Map) SetStyles(override style.Override, layer ...string) error {
	l, err := m.Layer(layerName(layer))
	if err != nil {
		return err
	}
	return l.SetStyles(override)
}

// RenderedLayer is one layer's render pass.
type RenderedLayer struct {
	Name     string
	Revision uint64
	Drawn    []viewport.Drawn
}

// Render renders every layer for v, bottom first.
func (m *Map) Render(v viewport.Viewport) []RenderedLayer {
	layers := m.Layers()
	out := make([]RenderedLayer, 0, len(layers))
	for _, l := range layers {
		drawn := l.Render(v)
		out = append(out, RenderedLayer{Name: l.Name(), Revision: l.Revision(), Drawn: drawn})
	}
	return out
}

// ClickResult reports what a click did on each layer.
type ClickResult struct {
	Hit       *feature.Feature
	Layer     string
	Results   map[string]selection.Result
	Revisions map[string]uint64 // layer revision right after the click
}

// Click hit-tests px across all layers and delivers the result to every
// layer, so a hit on one layer is a miss on the others. Clicks are handled
// one at a time in arrival order. Every layer stays locked from its render
// to its selection update, so a concurrent render cannot swap the features
// a hit refers to.
func (m *Map) Click(v viewport.Viewport, px orb.Point) ClickResult {
	m.clickMu.Lock()
	defer m.clickMu.Unlock()

	layers := m.Layers()
	res := ClickResult{
		Results:   make(map[string]selection.Result, len(layers)),
		Revisions: make(map[string]uint64, len(layers)),
	}

	// Only Click holds more than one layer lock, and clickMu serializes it.
	for _, l := range layers {
		l.mu.Lock()
	}
	defer func() {
		for _, l := range layers {
			l.mu.Unlock()
		}
	}()

	var drawn []viewport.Drawn
	owner := make(map[*feature.Feature]string)
	for _, l := range layers {
		for _, d := range l.prepareClick(v) {
			drawn = append(drawn, d)
			owner[d.Feature] = l.Name()
		}
	}
	if hit := viewport.HitTest(v, px, drawn); hit != nil {
		res.Hit = hit
		res.Layer = owner[hit]
	}

	for _, l := range layers {
		r := l.handleClick(res.Hit)
		res.Results[l.Name()] = r
		res.Revisions[l.Name()] = l.revision
		if r.Action == selection.ActionCleared && res.Hit == nil {
			m.logger.Debug("miss click", "layer", l.Name())
		}
	}
	return res
}
