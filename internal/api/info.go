package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir     string
	dbOK        bool
	subscribers func() int
}

// NewInfoHandler reports on the data dir and history database. subscribers
// may be nil.
func NewInfoHandler(dataDir string, dbOK bool, subscribers func() int) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, subscribers: subscribers}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether the selection history database is available"`
	Features []string `json:"features" doc:"Available features"`
	Streams  int      `json:"streams" doc:"Open interaction event streams"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"clustering", "selection", "styles", "datastar"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	streams := 0
	if h.subscribers != nil {
		streams = h.subscribers()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-map",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: features,
		Streams:  streams,
	}}, nil
}
