package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-map/internal/server"
	"github.com/joeblew999/plat-map/internal/service"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --map-file, --no-db, --debug
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_MAP_FILE, ...
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for layer configs, sources and the history database" default:".data"`
	MapFile string `doc:"YAML map description (base view and layers)"`
	NoDB    bool   `doc:"Disable the DuckDB selection history"`
	Debug   bool   `doc:"Enable debug logging"`
}

func newLogger(opts *Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		MapFile: opts.MapFile,
		NoDB:    opts.NoDB,
		Logger:  newLogger(opts),
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load(".env")

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		slog.SetDefault(logger)

		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts)
			if err != nil {
				fatal("Server setup failed: %v", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			logger.Info("plat-map API server starting",
				"url", baseURL,
				"data", opts.DataDir,
				"docs", baseURL+"/docs",
				"openapi", baseURL+"/openapi.json",
				"metrics", baseURL+"/metrics",
			)

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn("shutdown", "error", err)
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "yourmap"
	cli.Root().Short = "Interactive map server with clustering and click selection"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			srv, err := newServer(opts)
			if err != nil {
				fatal("Error building server: %v", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// generate subcommand: write random demo points into the sources dir
	generateCmd := &cobra.Command{
		Use:   "generate [name]",
		Short: "Generate a GeoJSON file of random demo points",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			name := "demo.geojson"
			if len(args) == 1 {
				name = args[0]
			}
			count, _ := cmd.Flags().GetInt("count")

			sources := service.NewSourceService(opts.DataDir)
			fc, err := sources.Generate(name, count)
			if err != nil {
				fatal("Error generating %s: %v", name, err)
			}
			fmt.Printf("Wrote %d points to %s/%s\n", len(fc.Features), sources.SourcesDir(), name)
		}),
	}
	generateCmd.Flags().IntP("count", "n", 1000, "Number of points")
	cli.Root().AddCommand(generateCmd)

	cli.Run()
}
