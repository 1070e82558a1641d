package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-map/internal/feature"
	"github.com/joeblew999/plat-map/internal/metrics"
	"github.com/joeblew999/plat-map/internal/selection"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/joeblew999/plat-map/internal/tiles"
	"github.com/joeblew999/plat-map/internal/viewport"
	"github.com/joeblew999/plat-map/internal/yourmap"
)

// SelectionEvent is one selection change on a layer.
type SelectionEvent struct {
	Layer      string               `json:"layer"`
	Action     string               `json:"action"`
	FeatureIDs []string             `json:"featureIds"`
	Properties []geojson.Properties `json:"properties,omitempty"`
	Revision   uint64               `json:"revision"`
	At         time.Time            `json:"at"`
}

// SelectionRecorder stores selection events.
type SelectionRecorder interface {
	RecordSelection(ctx context.Context, e SelectionEvent) error
}

// RenderedFeature is a drawn feature as sent to clients.
type RenderedFeature struct {
	ID         string             `json:"id" doc:"Feature ID; clusters are prefixed with cluster:"`
	Kind       feature.Kind       `json:"kind" enum:"point,cluster" doc:"Visual kind"`
	Selected   bool               `json:"selected" doc:"Whether the feature is in the selection group"`
	Count      int                `json:"count,omitempty" doc:"Number of bundled points (wrappers only)"`
	Pixel      [2]float64         `json:"pixel" doc:"Anchor in view pixels"`
	Geometry   any                `json:"geometry" doc:"GeoJSON geometry"`
	Style      style.Style        `json:"style" doc:"Resolved style"`
	Properties geojson.Properties `json:"properties,omitempty" doc:"Feature properties"`
}

// RenderedLayer is one layer of a render pass.
type RenderedLayer struct {
	Name     string            `json:"name"`
	Revision uint64            `json:"revision"`
	Features []RenderedFeature `json:"features"`
}

// ClickOutcome reports the effect of a click on every layer.
type ClickOutcome struct {
	Hit      *RenderedFeature                `json:"hit,omitempty" doc:"Topmost feature under the pointer"`
	Layer    string                          `json:"layer,omitempty" doc:"Layer owning the hit"`
	Actions  map[string]selection.Action     `json:"actions" doc:"Per-layer result: none, selected or cleared"`
	Selected map[string][]geojson.Properties `json:"selected,omitempty" doc:"Properties of newly selected groups, by layer"`
}

// MapService hosts the live interactive map. Layer configs are synced into
// it; clicks and renders go through it.
type MapService struct {
	m        *yourmap.Map
	sources  *SourceService
	bus      *EventBus
	logger   *slog.Logger
	recorder SelectionRecorder
}

// MapOption configures a MapService.
type MapOption func(*MapService)

// WithRecorder stores selection events in r.
func WithRecorder(r SelectionRecorder) MapOption {
	return func(s *MapService) { s.recorder = r }
}

// WithMapLogger sets the logger.
func WithMapLogger(l *slog.Logger) MapOption {
	return func(s *MapService) { s.logger = l }
}

// NewMapService builds the live map from opts. Layers in opts with a source
// and no inline data are loaded from sources.
func NewMapService(opts yourmap.Options, sources *SourceService, bus *EventBus, options ...MapOption) (*MapService, error) {
	s := &MapService{
		sources: sources,
		bus:     bus,
		logger:  slog.Default(),
	}
	for _, o := range options {
		o(s)
	}

	layers := make(map[string]yourmap.LayerOptions, len(opts.Layers))
	for name, lo := range opts.Layers {
		if lo.Data == nil && lo.Source != "" {
			fc, err := s.load(lo.Source)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", name, err)
			}
			lo.Data = fc
		}
		layers[name] = lo
	}
	opts.Layers = layers

	m, err := yourmap.New(opts,
		yourmap.WithLogger(s.logger),
		yourmap.WithChangeListener(s.changed),
	)
	if err != nil {
		return nil, err
	}
	s.m = m
	return s, nil
}

func (s *MapService) load(source string) (*geojson.FeatureCollection, error) {
	if s.sources == nil {
		return nil, fmt.Errorf("no source store for %q", source)
	}
	return s.sources.Load(source)
}

func (s *MapService) changed(layer string, revision uint64) {
	metrics.RepaintsTotal.WithLabelValues(layer).Inc()
	if s.bus != nil {
		s.bus.Publish(Event{Resource: "map", Action: "changed", ID: layer, Revision: revision})
	}
}

// View returns the base view and layer order.
func (s *MapService) View() yourmap.View { return s.m.View() }

// Sync creates or rebuilds the live layer for cfg. Hidden layers are
// removed. Rebuilding reloads the source and drops the selection. When the
// source cannot be loaded the live layer is left as it was.
func (s *MapService) Sync(cfg LayerConfig) error {
	if !cfg.Visible {
		if err := s.Remove(cfg.ID); err != nil && !errors.Is(err, yourmap.ErrLayerNotFound) {
			return err
		}
		return nil
	}

	clustering := cfg.Clustering
	lo := yourmap.LayerOptions{
		Source:     cfg.Source,
		Clustering: &clustering,
		Distance:   cfg.Distance,
		Order:      cfg.Order,
		Style:      cfg.Styles,
	}
	if cfg.Source != "" {
		fc, err := s.load(cfg.Source)
		if err != nil {
			return fmt.Errorf("layer %q: %w", cfg.ID, err)
		}
		lo.Data = fc
	}
	if err := s.m.ReplaceLayer(cfg.ID, lo); err != nil {
		return err
	}
	s.logger.Info("layer synced", "layer", cfg.ID, "source", cfg.Source, "clustering", clustering)
	return nil
}

// SyncAll syncs every config. A layer that fails to load is skipped and
// its error joined into the result.
func (s *MapService) SyncAll(configs []LayerConfig) error {
	var errs []error
	for _, cfg := range configs {
		if err := s.Sync(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes a live layer.
func (s *MapService) Remove(id string) error {
	return s.m.RemoveLayer(id)
}

// SetData replaces the data of a live layer.
func (s *MapService) SetData(id string, fc *geojson.FeatureCollection) error {
	return s.m.SetData(fc, id)
}

// AddData appends data to a live layer.
func (s *MapService) AddData(id string, fc *geojson.FeatureCollection) error {
	return s.m.AddData(fc, id)
}

// ClearData empties a live layer.
func (s *MapService) ClearData(id string) error {
	return s.m.ClearData(id)
}

// SetStyles compiles spec and merges it onto the live layer. Variants spec
// leaves out keep their current style.
func (s *MapService) SetStyles(id string, spec style.LayerSpec) error {
	override, err := spec.Override()
	if err != nil {
		return err
	}
	return s.m.SetStyles(override, id)
}

// Selection returns the property bags of a layer's selection group.
func (s *MapService) Selection(id string) ([]geojson.Properties, error) {
	l, err := s.m.Layer(id)
	if err != nil {
		return nil, err
	}
	return l.SelectedProperties(), nil
}

// Render renders every layer for v, bottom first.
func (s *MapService) Render(v viewport.Viewport) []RenderedLayer {
	start := time.Now()
	rendered := s.m.Render(v)
	out := make([]RenderedLayer, 0, len(rendered))
	for _, rl := range rendered {
		features := make([]RenderedFeature, 0, len(rl.Drawn))
		for _, d := range rl.Drawn {
			features = append(features, toRendered(v, d))
		}
		metrics.RenderedFeaturesTotal.WithLabelValues(rl.Name).Add(float64(len(features)))
		out = append(out, RenderedLayer{Name: rl.Name, Revision: rl.Revision, Features: features})
	}
	metrics.RenderDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return out
}

// Tile renders layer id for tile t and encodes it as a gzipped vector
// tile. An empty tile is returned as nil.
func (s *MapService) Tile(id string, t maptile.Tile) ([]byte, error) {
	l, err := s.m.Layer(id)
	if err != nil {
		return nil, err
	}
	v := tiles.View(t)
	drawn := l.Render(v)
	metrics.RenderedFeaturesTotal.WithLabelValues(id).Add(float64(len(drawn)))
	return tiles.Encode(t, id, drawn)
}

// Click applies a click at px in v to every layer. Selection changes are
// counted, published and recorded after the layers are updated.
func (s *MapService) Click(ctx context.Context, v viewport.Viewport, px orb.Point) ClickOutcome {
	res := s.m.Click(v, px)
	out := ClickOutcome{
		Layer:   res.Layer,
		Actions: make(map[string]selection.Action, len(res.Results)),
	}

	if res.Hit != nil {
		if l, err := s.m.Layer(res.Layer); err == nil {
			hit := toRendered(v, l.Draw(res.Hit, v.Resolution()))
			out.Hit = &hit
		}
	}

	for name, r := range res.Results {
		out.Actions[name] = r.Action
		metrics.ClicksTotal.WithLabelValues(name, string(r.Action)).Inc()
		if r.Action == selection.ActionNone {
			continue
		}

		revision := res.Revisions[name]
		ev := SelectionEvent{
			Layer:    name,
			Action:   string(r.Action),
			Revision: revision,
			At:       time.Now().UTC(),
		}
		for _, f := range r.Features {
			ev.FeatureIDs = append(ev.FeatureIDs, f.ID)
		}
		if r.Action == selection.ActionSelected {
			ev.Properties = feature.PropertiesOf(r.Features)
			if out.Selected == nil {
				out.Selected = make(map[string][]geojson.Properties)
			}
			out.Selected[name] = ev.Properties
		}

		if s.bus != nil {
			s.bus.Publish(Event{Resource: "map", Action: ev.Action, ID: name, Revision: revision})
		}
		if s.recorder != nil {
			if err := s.recorder.RecordSelection(ctx, ev); err != nil {
				s.logger.Warn("recording selection failed", "layer", name, "error", err)
			}
		}
	}
	return out
}

func toRendered(v viewport.Viewport, d viewport.Drawn) RenderedFeature {
	f := d.Feature
	center := f.Geometry.Bound().Center()
	if p, ok := f.Geometry.(orb.Point); ok {
		center = p
	}
	px := v.ToPixel(center)

	rf := RenderedFeature{
		ID:       f.ID,
		Kind:     feature.KindOf(f),
		Selected: d.Selected,
		Pixel:    [2]float64{px[0], px[1]},
		Geometry: geojson.NewGeometry(f.Geometry),
		Style:    d.Style,
	}
	props := f.Properties
	if f.IsWrapper() {
		members := f.Members()
		rf.Count = len(members)
		if len(members) == 1 {
			props = members[0].Properties
		}
	}
	if len(props) > 0 {
		rf.Properties = props.Clone()
	}
	return rf
}
