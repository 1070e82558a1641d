// Package interact contains the Datastar SSE handlers of the map UI: a
// change stream fed by the event bus and a click endpoint driven by
// signals.
package interact

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-map/internal/humastar"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/viewport"
	"github.com/joeblew999/plat-map/internal/yourmap"
)

// Handler serves the interaction endpoints.
type Handler struct {
	maps *service.MapService
	bus  *service.EventBus

	// Heartbeat is the keep-alive interval of the event stream.
	Heartbeat time.Duration
}

// NewHandler creates the interaction handler.
func NewHandler(maps *service.MapService, bus *service.EventBus) *Handler {
	return &Handler{maps: maps, bus: bus, Heartbeat: 30 * time.Second}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/interact/events", h.Events, huma.OperationTags("interact"))
	huma.Post(api, "/api/v1/interact/click", h.Click, huma.OperationTags("interact"))
}

// Events streams bus events as signal patches. Map events update the
// per-layer revision so clients know when to re-render.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		sse.Signals(map[string]any{"layers": h.maps.View().Layers})

		tick := time.NewTicker(h.Heartbeat)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				sse.Signals(map[string]any{"heartbeat": time.Now().Unix()})
			case ev, ok := <-ch:
				if !ok {
					return
				}
				sse.Signals(eventSignals(ev, h.maps.View()))
			}
		}
	}), nil
}

func eventSignals(ev service.Event, view yourmap.View) map[string]any {
	signals := map[string]any{
		"event": map[string]any{
			"resource": ev.Resource,
			"action":   ev.Action,
			"id":       ev.ID,
		},
	}
	switch ev.Resource {
	case "map":
		signals["revisions"] = map[string]any{ev.ID: ev.Revision}
	case "layers":
		signals["layers"] = view.Layers
	}
	return signals
}

// viewFromSignals reads the view a click happened in. Missing view signals
// fall back to the map's initial view. The result is not validated.
func viewFromSignals(s humastar.Signals, base yourmap.BaseOptions) viewport.Viewport {
	return viewport.Viewport{
		Center: orb.Point{
			s.FloatOr("centerlon", base.Center[0]),
			s.FloatOr("centerlat", base.Center[1]),
		},
		Zoom:   s.FloatOr("zoom", base.Zoom),
		Width:  int(s.FloatOr("width", 1024)),
		Height: int(s.FloatOr("height", 768)),
	}
}

// Click applies a click at signals x/y and patches the hit, the per-layer
// actions and any new selection back into the page.
func (h *Handler) Click(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("x") || !signals.Has("y") {
		return nil, huma.Error400BadRequest("x and y are required")
	}

	v := viewFromSignals(signals, h.maps.View().BaseOptions)
	if err := v.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	px := orb.Point{signals.Float("x"), signals.Float("y")}
	out := h.maps.Click(ctx, v, px)

	return humastar.Stream(func(sse humastar.SSE) {
		patch := map[string]any{
			"hit":     nil,
			"layer":   out.Layer,
			"actions": out.Actions,
		}
		if out.Hit != nil {
			patch["hit"] = out.Hit
		}
		if len(out.Selected) > 0 {
			patch["selected"] = out.Selected
		}
		sse.Signals(patch)
	}), nil
}
