// Package metrics provides Prometheus instrumentation for the import
// pipeline and its HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportsTotal counts pipeline runs, partitioned by detected broker and
	// outcome (ok, error).
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradevault_imports_total",
		Help: "Total number of import pipeline runs",
	}, []string{"broker", "outcome"})

	// ImportRowsTotal counts data rows processed across all imports.
	ImportRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradevault_import_rows_total",
		Help: "Total data rows processed by the import pipeline",
	})

	// ImportWarningsTotal counts row-level warnings surfaced to callers.
	ImportWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradevault_import_warnings_total",
		Help: "Total row-level warnings produced by the import pipeline",
	})

	// TradesReconstructed counts trades emitted by the order reconstructor.
	TradesReconstructed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradevault_trades_reconstructed_total",
		Help: "Total trades reconstructed from import files",
	})

	// SyntheticIDsTotal counts identifiers the pipeline had to synthesize.
	SyntheticIDsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradevault_synthetic_ids_total",
		Help: "Total row identifiers synthesized during imports",
	})

	// ImportDuration tracks end-to-end pipeline duration.
	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradevault_import_duration_seconds",
		Help:    "Import pipeline duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradevault_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradevault_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	}, []string{"method", "path"})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
