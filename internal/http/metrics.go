package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus collectors exposed on /metrics. Each
// Server owns its registry so tests can spin up servers independently.
type serverMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &serverMetrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "budget_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		importRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_import_rows_total",
			Help: "CSV import rows by ledger and parse result.",
		}, []string{"ledger", "result"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "budget_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
	}
}

// registerRecomputeCounter exposes the balance engine's recompute count as a
// counter sourced from the service itself.
func (m *serverMetrics) registerRecomputeCounter(count func() int64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "budget_balance_recomputes_total",
		Help: "Completed balance recomputations.",
	}, func() float64 {
		return float64(count())
	}))
}

func (m *serverMetrics) observeImport(ledger string, parsed, invalid int) {
	m.importRows.WithLabelValues(ledger, "parsed").Add(float64(parsed))
	m.importRows.WithLabelValues(ledger, "invalid").Add(float64(invalid))
}
