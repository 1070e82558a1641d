// Package selection keeps single-group click selection for one map layer.
package selection

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/feature"
)

// Layer is the host layer a controller acts on.
type Layer interface {
	// Owns reports whether f is part of the layer's current rendered set.
	Owns(f *feature.Feature) bool
	// Changed requests a repaint of the layer.
	Changed()
}

// Handler receives the property bags of a newly selected group, in member
// order. It is called once per selecting click.
type Handler func(props []geojson.Properties)

// State is the controller state.
type State string

const (
	Idle     State = "idle"
	Selected State = "selected"
)

// Action describes what a click did.
type Action string

const (
	ActionNone     Action = "none"
	ActionSelected Action = "selected"
	ActionCleared  Action = "cleared"
)

// Result is returned by HandleClick.
type Result struct {
	Action   Action
	Features []*feature.Feature
}

// Controller owns the selection set of one layer. It is not safe for
// concurrent use; the owning layer serializes calls.
type Controller struct {
	layer      Layer
	clustering bool
	handler    Handler
	selected   []*feature.Feature
}

// NewController creates a controller in the Idle state. A nil handler is
// allowed.
func NewController(layer Layer, clustering bool, handler Handler) *Controller {
	return &Controller{
		layer:      layer,
		clustering: clustering,
		handler:    handler,
	}
}

// HandleClick applies one click. hit is the topmost rendered feature under
// the pointer, or nil for a click on empty space. A hit the layer does not
// own is handled as a miss.
//
// Clicking the selected group again selects it again; it does not toggle.
func (c *Controller) HandleClick(hit *feature.Feature) Result {
	if hit == nil || !c.layer.Owns(hit) {
		if len(c.selected) == 0 {
			return Result{Action: ActionNone}
		}
		cleared := c.selected
		c.clear()
		c.layer.Changed()
		return Result{Action: ActionCleared, Features: cleared}
	}

	group := feature.Group(hit, c.clustering)
	c.clear()
	for _, f := range group {
		f.SetSelected(true)
	}
	c.selected = group

	if c.handler != nil {
		c.handler(feature.PropertiesOf(group))
	}
	c.layer.Changed()
	return Result{Action: ActionSelected, Features: group}
}

// Selected returns a copy of the current selection set.
func (c *Controller) Selected() []*feature.Feature {
	out := make([]*feature.Feature, len(c.selected))
	copy(out, c.selected)
	return out
}

// State returns Idle or Selected.
func (c *Controller) State() State {
	if len(c.selected) == 0 {
		return Idle
	}
	return Selected
}

// Reset drops the selection without calling the handler or repainting.
// Used when the layer's features are replaced.
func (c *Controller) Reset() {
	c.clear()
}

func (c *Controller) clear() {
	for _, f := range c.selected {
		f.SetSelected(false)
	}
	c.selected = nil
}
