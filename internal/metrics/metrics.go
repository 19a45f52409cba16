// Package metrics exposes Prometheus collectors fed by query and HTTP events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	queries      *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	rows         prometheus.Counter
	adapterCalls *prometheus.CounterVec
	requests     *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trellis_queries_total",
			Help: "Total number of finished queries by outcome",
		}, []string{"kind"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trellis_query_duration_seconds",
			Help:    "Time from the first row requested to the end of the result stream",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trellis_rows_total",
			Help: "Total number of result rows produced",
		}),
		adapterCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trellis_adapter_calls_total",
			Help: "Total number of adapter method invocations",
		}, []string{"method"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trellis_http_requests_total",
			Help: "Total number of HTTP requests by path and status",
		}, []string{"path", "status"}),
	}
	m.registry.MustRegister(
		m.queries, m.queryLatency, m.rows, m.adapterCalls, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func kindLabel(kind string) string {
	if kind == "" {
		return "ok"
	}
	return kind
}

// Subscribe feeds the collectors from the global event bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.QueryFinish) {
			kind := kindLabel(e.Kind)
			m.queries.WithLabelValues(kind).Inc()
			m.queryLatency.WithLabelValues(kind).Observe(e.Duration.Seconds())
			m.rows.Add(float64(e.Rows))
		}),
		eventbus.Subscribe(func(_ context.Context, e events.AdapterCall) {
			m.adapterCalls.WithLabelValues(e.Method).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.requests.WithLabelValues(e.Request.URL.Path, strconv.Itoa(e.Status)).Inc()
		}),
	}
	return func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
