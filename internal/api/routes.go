// Package api defines the Huma API routes and handlers.
package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-map/internal/humastar"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/joeblew999/plat-map/internal/tiles"
	"github.com/joeblew999/plat-map/internal/viewport"
	"github.com/joeblew999/plat-map/internal/yourmap"
)

// SelectionHistory reads recorded selection events.
type SelectionHistory interface {
	Recent(ctx context.Context, layer string, limit int) ([]service.SelectionEvent, error)
}

// Services holds the service dependencies for API handlers.
type Services struct {
	Layer   *service.LayerService
	Source  *service.SourceService
	Map     *service.MapService
	History SelectionHistory
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"incidents"`
}

// layerActions are the per-layer hypermedia actions.
var layerActions = []humastar.ActionDef{
	{Rel: "styles", Pattern: "/api/v1/layers/%s/styles", Method: "PUT", Title: "Patch styles"},
	{Rel: "data", Pattern: "/api/v1/layers/%s/data", Method: "PUT", Title: "Replace data"},
	{Rel: "selection", Pattern: "/api/v1/layers/%s/selection", Method: "GET", Title: "Current selection"},
	{Rel: "history", Pattern: "/api/v1/layers/%s/selections", Method: "GET", Title: "Selection history"},
	{Rel: "delete", Pattern: "/api/v1/layers/%s", Method: "DELETE", Title: "Delete layer"},
}

// LayerBody is a layer configuration with its hypermedia actions.
type LayerBody struct {
	service.LayerConfig
}

// Actions implements humastar.Actor.
func (b LayerBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, layerActions)
}

type LayerOutput struct {
	Body LayerBody
}

type LayersOutput struct {
	Body map[string]service.LayerConfig
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedLayerBody struct {
	ID      string              `json:"id" doc:"Generated layer ID"`
	Layer   service.LayerConfig `json:"layer" doc:"Created layer configuration"`
	Message string              `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers layer CRUD routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}", h.PutLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/styles", h.PutStyles, huma.OperationTags("layers"))
}

// RegisterData registers live layer data routes.
func (h *APIHandler) RegisterData(api huma.API) {
	huma.Put(api, "/api/v1/layers/{id}/data", h.SetData, huma.OperationTags("data"))
	huma.Post(api, "/api/v1/layers/{id}/data", h.AddData, huma.OperationTags("data"))
	huma.Delete(api, "/api/v1/layers/{id}/data", h.ClearData, huma.OperationTags("data"))
}

// RegisterSelection registers selection read routes.
func (h *APIHandler) RegisterSelection(api huma.API) {
	huma.Get(api, "/api/v1/layers/{id}/selection", h.GetSelection, huma.OperationTags("selection"))
	huma.Get(api, "/api/v1/layers/{id}/selections", h.GetSelectionHistory, huma.OperationTags("selection"))
}

// RegisterMap registers the view, render and click routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map/view", h.GetView, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/render", h.Render, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/click", h.Click, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/layers/{id}/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("map"))
}

// RegisterSources registers source file routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Put(api, "/api/v1/sources/{name}", h.PutSource, huma.OperationTags("sources"))
	huma.Delete(api, "/api/v1/sources/{name}", h.DeleteSource, huma.OperationTags("sources"))
	huma.Post(api, "/api/v1/sources/generate", h.GenerateSource, huma.OperationTags("sources"))
}

// toHTTPError maps service errors onto Huma status errors.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrLayerNotFound), errors.Is(err, yourmap.ErrLayerNotFound),
		errors.Is(err, service.ErrSourceNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrLayerExists), errors.Is(err, yourmap.ErrLayerExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrInvalidLayer), errors.Is(err, style.ErrInvalidOverride):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error400BadRequest(err.Error())
	}
}

func (h *APIHandler) ready() error {
	if h.svc == nil || h.svc.Layer == nil || h.svc.Map == nil {
		return huma.Error503ServiceUnavailable("service not available")
	}
	return nil
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return &LayersOutput{Body: map[string]service.LayerConfig{}}, nil
	}
	return &LayersOutput{Body: h.svc.Layer.List()}, nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body service.LayerConfig }) (*struct{ Body CreatedLayerBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	created, err := h.svc.Layer.Create(input.Body)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if err := h.svc.Map.Sync(created); err != nil {
		_ = h.svc.Layer.Delete(created.ID)
		return nil, toHTTPError(err)
	}
	return &struct{ Body CreatedLayerBody }{Body: CreatedLayerBody{
		ID: created.ID, Layer: created, Message: "Layer created",
	}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	layer, ok := h.svc.Layer.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LayerOutput{Body: LayerBody{layer}}, nil
}

func (h *APIHandler) PutLayer(ctx context.Context, input *struct {
	IDInput
	Body service.LayerConfig
}) (*LayerOutput, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	prev, ok := h.svc.Layer.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	updated, err := h.svc.Layer.Update(input.ID, input.Body)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if err := h.svc.Map.Sync(updated); err != nil {
		if _, rerr := h.svc.Layer.Update(input.ID, prev); rerr != nil {
			slog.Warn("layer config not restored", "layer", input.ID, "error", rerr)
		}
		return nil, toHTTPError(err)
	}
	return &LayerOutput{Body: LayerBody{updated}}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	if err := h.svc.Layer.Delete(input.ID); err != nil {
		return nil, toHTTPError(err)
	}
	if err := h.svc.Map.Remove(input.ID); err != nil && !errors.Is(err, yourmap.ErrLayerNotFound) {
		return nil, toHTTPError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}

// PutStyles merges a partial style spec into a layer. Variants the body
// leaves out keep their current style.
func (h *APIHandler) PutStyles(ctx context.Context, input *struct {
	IDInput
	Body style.LayerSpec
}) (*LayerOutput, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	updated, err := h.svc.Layer.PatchStyles(input.ID, input.Body)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if err := h.svc.Map.SetStyles(input.ID, input.Body); err != nil && !errors.Is(err, yourmap.ErrLayerNotFound) {
		return nil, toHTTPError(err)
	}
	return &LayerOutput{Body: LayerBody{updated}}, nil
}

// DataInput carries a GeoJSON FeatureCollection.
type DataInput struct {
	IDInput
	RawBody []byte
}

type DataBody struct {
	Layer    string `json:"layer" doc:"Layer ID"`
	Features int    `json:"features" doc:"Features in the request"`
	Message  string `json:"message" doc:"Result message"`
}

func parseCollection(body []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, huma.Error400BadRequest("body must be a GeoJSON FeatureCollection: " + err.Error())
	}
	return fc, nil
}

func (h *APIHandler) SetData(ctx context.Context, input *DataInput) (*struct{ Body DataBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	fc, err := parseCollection(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Map.SetData(input.ID, fc); err != nil {
		return nil, toHTTPError(err)
	}
	return &struct{ Body DataBody }{Body: DataBody{Layer: input.ID, Features: len(fc.Features), Message: "Data replaced"}}, nil
}

func (h *APIHandler) AddData(ctx context.Context, input *DataInput) (*struct{ Body DataBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	fc, err := parseCollection(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Map.AddData(input.ID, fc); err != nil {
		return nil, toHTTPError(err)
	}
	return &struct{ Body DataBody }{Body: DataBody{Layer: input.ID, Features: len(fc.Features), Message: "Data added"}}, nil
}

func (h *APIHandler) ClearData(ctx context.Context, input *IDInput) (*struct{ Body DataBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	if err := h.svc.Map.ClearData(input.ID); err != nil {
		return nil, toHTTPError(err)
	}
	return &struct{ Body DataBody }{Body: DataBody{Layer: input.ID, Message: "Data cleared"}}, nil
}

type SelectionBody struct {
	Layer    string               `json:"layer" doc:"Layer ID"`
	Features []geojson.Properties `json:"features" doc:"Properties of the selected features, in group order"`
}

func (h *APIHandler) GetSelection(ctx context.Context, input *IDInput) (*struct{ Body SelectionBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	props, err := h.svc.Map.Selection(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if props == nil {
		props = []geojson.Properties{}
	}
	return &struct{ Body SelectionBody }{Body: SelectionBody{Layer: input.ID, Features: props}}, nil
}

type HistoryInput struct {
	IDInput
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Page offset"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

type HistoryOutput struct {
	Body humastar.PageBody[service.SelectionEvent]
}

func (h *APIHandler) GetSelectionHistory(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	if h.svc == nil || h.svc.History == nil {
		return nil, huma.Error503ServiceUnavailable("selection history not available")
	}
	// One extra row tells the pager whether a next page exists.
	events, err := h.svc.History.Recent(ctx, input.ID, input.Offset+input.Limit+1)
	if err != nil {
		return nil, huma.Error500InternalServerError("reading selection history", err)
	}
	return &HistoryOutput{Body: humastar.Page(events, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetView(ctx context.Context, input *struct{}) (*struct{ Body yourmap.View }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	return &struct{ Body yourmap.View }{Body: h.svc.Map.View()}, nil
}

// ClickBody is a click at a view pixel.
type ClickBody struct {
	View viewport.Viewport `json:"view" doc:"View the click happened in"`
	X    float64           `json:"x" doc:"Pixel column from the left edge" example:"512"`
	Y    float64           `json:"y" doc:"Pixel row from the top edge" example:"384"`
}

type RenderBody struct {
	Layers []service.RenderedLayer `json:"layers" doc:"Layers bottom first"`
}

func (h *APIHandler) Render(ctx context.Context, input *struct{ Body viewport.Viewport }) (*struct{ Body RenderBody }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	return &struct{ Body RenderBody }{Body: RenderBody{Layers: h.svc.Map.Render(input.Body)}}, nil
}

func (h *APIHandler) Click(ctx context.Context, input *struct{ Body ClickBody }) (*struct{ Body service.ClickOutcome }, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	out := h.svc.Map.Click(ctx, input.Body.View, orb.Point{input.Body.X, input.Body.Y})
	return &struct{ Body service.ClickOutcome }{Body: out}, nil
}

type TileInput struct {
	IDInput
	Z int `path:"z" minimum:"0" maximum:"24" doc:"Tile zoom"`
	X int `path:"x" minimum:"0" doc:"Tile column"`
	Y int `path:"y" minimum:"0" doc:"Tile row"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

// GetTile serves a layer's styled render set as a gzipped vector tile.
func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	if n := 1 << input.Z; input.X >= n || input.Y >= n {
		return nil, huma.Error400BadRequest("tile out of range")
	}
	data, err := h.svc.Map.Tile(input.ID, maptile.New(uint32(input.X), uint32(input.Y), maptile.Zoom(input.Z)))
	if err != nil {
		return nil, toHTTPError(err)
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{Status: http.StatusOK, ContentType: tiles.ContentType, ContentEncoding: "gzip", Body: data}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

type SourceNameInput struct {
	Name string `path:"name" doc:"Source file name" example:"incidents.geojson"`
}

func (h *APIHandler) PutSource(ctx context.Context, input *struct {
	SourceNameInput
	RawBody []byte
}) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if err := h.svc.Source.Save(input.Name, bytes.NewReader(input.RawBody)); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Source saved: " + input.Name}}, nil
}

func (h *APIHandler) DeleteSource(ctx context.Context, input *SourceNameInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if err := h.svc.Source.Delete(input.Name); err != nil {
		return nil, toHTTPError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Source deleted: " + input.Name}}, nil
}

type GenerateBody struct {
	Name  string `json:"name" required:"true" doc:"Output file name" example:"demo.geojson"`
	Count int    `json:"count" minimum:"1" maximum:"100000" default:"1000" doc:"Number of random points"`
}

func (h *APIHandler) GenerateSource(ctx context.Context, input *struct{ Body GenerateBody }) (*struct{ Body service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if _, err := h.svc.Source.Generate(input.Body.Name, input.Body.Count); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	files, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sources", err)
	}
	for _, f := range files {
		if f.Name == input.Body.Name {
			return &struct{ Body service.SourceFile }{Body: f}, nil
		}
	}
	return nil, huma.Error500InternalServerError("generated source missing")
}
