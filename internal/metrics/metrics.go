// Package metrics exposes Prometheus counters for map interaction.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platmap_clicks_total",
		Help: "Clicks delivered to a layer, by resulting action",
	}, []string{"layer", "action"})
	RepaintsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platmap_repaints_total",
		Help: "Repaint requests issued by a layer",
	}, []string{"layer"})
	RenderedFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platmap_rendered_features_total",
		Help: "Features drawn by render passes, by layer",
	}, []string{"layer"})
	RenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "platmap_render_duration_ms",
		Help:    "Map render duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
)

func init() {
	prometheus.MustRegister(ClicksTotal)
	prometheus.MustRegister(RepaintsTotal)
	prometheus.MustRegister(RenderedFeaturesTotal)
	prometheus.MustRegister(RenderDurationMs)
}

// Handler serves the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
