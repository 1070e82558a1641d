package yourmap

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/cluster"
	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/selection"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/joeblew999/plat-map/internal/viewport"
)

// ChangeFunc is called with the new revision each time a layer asks for a
// repaint.
type ChangeFunc func(layer string, revision uint64)

// Layer is one vector layer of a map: its features, clustering, styles and
// click selection.
//
// All methods are safe for concurrent use. Selection flags are written and
// the revision bumped under the same lock, so a reader that sees revision n
// also sees the flags written before it.
type Layer struct {
	name       string
	clustering bool
	distance   float64
	order      int
	logger     *slog.Logger
	onChange   ChangeFunc

	mu        sync.Mutex
	features  []*feature.Feature
	clickable map[*feature.Feature]struct{} // render set of the last click
	selection *selection.Controller
	styles    *style.Resolver
	revision  uint64
}

// NewLayer builds a layer from its options. Declarative styles are applied
// first, then the programmatic override.
func NewLayer(name string, opts LayerOptions, logger *slog.Logger, onChange ChangeFunc) (*Layer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	override, err := opts.Style.Override()
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", name, err)
	}
	styles, err := style.NewResolver(override)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", name, err)
	}
	if err := styles.SetStyles(opts.Override); err != nil {
		return nil, fmt.Errorf("layer %q: %w", name, err)
	}

	distance := opts.Distance
	if distance <= 0 {
		distance = cluster.DefaultDistance
	}
	l := &Layer{
		name:       name,
		clustering: opts.IsClustering(),
		distance:   distance,
		order:      opts.Order,
		logger:     logger.With("layer", name),
		onChange:   onChange,
		styles:     styles,
	}

	handler := opts.Handler
	if handler == nil {
		handler = func(props []geojson.Properties) {
			l.logger.Info("features selected", "count", len(props))
		}
	}
	l.selection = selection.NewController(host{l}, l.clustering, handler)

	if opts.Data != nil {
		l.features = feature.FromCollection(opts.Data)
	}
	return l, nil
}

// host adapts a Layer to selection.Layer. Its methods run with l.mu held.
type host struct{ l *Layer }

func (h host) Owns(f *feature.Feature) bool {
	_, ok := h.l.clickable[f]
	return ok
}

func (h host) Changed() { h.l.changed() }

func (l *Layer) changed() {
	l.revision++
	if l.onChange != nil {
		l.onChange(l.name, l.revision)
	}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Clustering reports whether points are clustered.
func (l *Layer) Clustering() bool { return l.clustering }

// Order returns the draw order; higher is drawn on top.
func (l *Layer) Order() int { return l.order }

// Revision returns the repaint counter.
func (l *Layer) Revision() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revision
}

// Len returns the number of logical features.
func (l *Layer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.features)
}

// SetData replaces the layer's features. The selection is dropped.
func (l *Layer) SetData(fc *geojson.FeatureCollection) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selection.Reset()
	l.features = feature.FromCollection(fc)
	l.resetRender()
	l.changed()
	return len(l.features)
}

// AddData appends features to the layer and returns how many were added.
func (l *Layer) AddData(fc *geojson.FeatureCollection) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := feature.FromCollection(fc)
	l.features = append(l.features, added...)
	l.changed()
	return len(added)
}

// ClearData removes every feature and drops the selection.
func (l *Layer) ClearData() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selection.Reset()
	l.features = nil
	l.resetRender()
	l.changed()
}

func (l *Layer) resetRender() {
	l.clickable = nil
}

// SetStyles merges override onto the layer styles.
func (l *Layer) SetStyles(override style.Override) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.styles.SetStyles(override); err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	l.changed()
	return nil
}

// Render resolves the layer for v and returns the features drawn inside
// the view, bottom to top. It does not change what a click can hit.
func (l *Layer) Render(v viewport.Viewport) []viewport.Drawn {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, drawn := l.render(v)
	return drawn
}

// render builds the render set for v. Callers hold l.mu.
func (l *Layer) render(v viewport.Viewport) (map[*feature.Feature]struct{}, []viewport.Drawn) {
	set := l.features
	if l.clustering {
		set = cluster.Cluster(l.features, v.Zoom, l.distance)
	}

	bound := v.Bound()
	resolution := v.Resolution()
	members := make(map[*feature.Feature]struct{}, len(set))
	var drawn []viewport.Drawn
	for _, f := range set {
		members[f] = struct{}{}
		if !f.Geometry.Bound().Intersects(bound) {
			continue
		}
		drawn = append(drawn, viewport.Drawn{
			Feature:  f,
			Style:    l.styles.Resolve(f, resolution),
			Selected: feature.IsSelected(f),
		})
	}
	return members, drawn
}

// prepareClick renders v as the set the next click is checked against.
// Callers hold l.mu until handleClick returns.
func (l *Layer) prepareClick(v viewport.Viewport) []viewport.Drawn {
	members, drawn := l.render(v)
	l.clickable = members
	return drawn
}

// handleClick forwards a hit-test result to the selection. Callers hold
// l.mu.
func (l *Layer) handleClick(hit *feature.Feature) selection.Result {
	return l.selection.HandleClick(hit)
}

// Selected returns the current selection group.
func (l *Layer) Selected() []*feature.Feature {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selection.Selected()
}

// SelectedProperties returns the property bags of the selection group.
func (l *Layer) SelectedProperties() []geojson.Properties {
	return feature.PropertiesOf(l.Selected())
}

// Style resolves the current style of f.
func (l *Layer) Style(f *feature.Feature, resolution float64) style.Style {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.styles.Resolve(f, resolution)
}

// Draw resolves f as it would be drawn now.
func (l *Layer) Draw(f *feature.Feature, resolution float64) viewport.Drawn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return viewport.Drawn{Feature: f, Style: l.styles.Resolve(f, resolution), Selected: feature.IsSelected(f)}
}
