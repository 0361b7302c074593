// Package metrics exposes Prometheus collectors for the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	toggles      *prometheus.CounterVec
	imports      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edital",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Document store operations by operation and result.",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edital",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Document store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edital",
			Name:      "topic_toggles_total",
			Help:      "Topic completion toggles by resulting state.",
		}, []string{"state"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edital",
			Subsystem: "inbox",
			Name:      "imports_total",
			Help:      "Outline files imported from the inbox by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.storeOps,
		m.storeLatency,
		m.toggles,
		m.imports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStore records one store operation.
func (m *Metrics) ObserveStore(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(op, result).Inc()
	m.storeLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveToggle records a completion toggle.
func (m *Metrics) ObserveToggle(done bool) {
	if m == nil {
		return
	}
	state := "undone"
	if done {
		state = "done"
	}
	m.toggles.WithLabelValues(state).Inc()
}

// ObserveImport records an inbox import ("created" or "updated").
func (m *Metrics) ObserveImport(kind string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(kind).Inc()
}
