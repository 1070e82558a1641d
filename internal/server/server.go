// Package server wires the services, the Huma API and the Datastar
// interaction endpoints into one http.Handler.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-map/internal/api"
	"github.com/joeblew999/plat-map/internal/api/interact"
	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/humastar"
	"github.com/joeblew999/plat-map/internal/metrics"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/yourmap"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	MapFile string // YAML map description; empty uses the built-in defaults
	NoDB    bool   // skip the DuckDB selection history
	Logger  *slog.Logger
}

// Server is the map HTTP server.
type Server struct {
	config   Config
	logger   *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
}

// New creates a new map server: it loads the map file, opens the history
// database and syncs the stored layer configs into the live map.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := yourmap.Options{BaseOptions: yourmap.DefaultBaseOptions()}
	if cfg.MapFile != "" {
		loaded, err := yourmap.LoadOptions(cfg.MapFile)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}

	s := &Server{
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		bus:    service.NewEventBus(),
	}

	var mapOpts []service.MapOption
	mapOpts = append(mapOpts, service.WithMapLogger(logger))
	var history api.SelectionHistory
	if !cfg.NoDB {
		conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "platmap"})
		if err != nil {
			logger.Warn("selection history disabled", "error", err)
		} else {
			s.db = conn
			log := db.NewSelectionLog(conn)
			mapOpts = append(mapOpts, service.WithRecorder(log))
			history = log
		}
	}

	sources := service.NewSourceService(cfg.DataDir)
	layers := service.NewLayerService(cfg.DataDir, s.bus)
	maps, err := service.NewMapService(opts, sources, s.bus, mapOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := maps.SyncAll(layers.Ordered()); err != nil {
		logger.Warn("some layers not loaded", "error", err)
	}

	s.services = &api.Services{
		Layer:   layers,
		Source:  sources,
		Map:     maps,
		History: history,
	}

	humaConfig := huma.DefaultConfig("plat-map API", "1.0.0")
	humaConfig.Info.Description = "Interactive map API: layers, styles, clustering and click selection."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer(api.Links()))
	s.humaAPI = humago.New(s.mux, humaConfig)

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the service set behind the API.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.bus.Subscribers).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)
	interact.NewHandler(s.services.Map, s.bus).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range api.Links()["/health"] {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-map",
		"status":  "running",
	})
}
