// ABOUTME: Prometheus instrumentation for pipelines and caches
// ABOUTME: Implements the pipeline Observer and serves a private registry over HTTP
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/pagen-admin/entity"
)

const namespace = "pagen_admin"

// Metrics owns a registry with the operation counters and latency histogram.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Pipeline operations by collection and operation.",
		}, []string{"collection", "op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed pipeline operations by collection and operation.",
		}, []string{"collection", "op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Pipeline operation latency, including the backing store call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "op"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.failures,
		m.latency,
	)
	return m
}

// Observe implements entity.Observer.
func (m *Metrics) Observe(collection string, op entity.Op, elapsed time.Duration, err error) {
	m.operations.WithLabelValues(collection, string(op)).Inc()
	if err != nil {
		m.failures.WithLabelValues(collection, string(op)).Inc()
	}
	m.latency.WithLabelValues(collection, string(op)).Observe(elapsed.Seconds())
}

// TrackSize exports a cache size gauge for one collection.
func (m *Metrics) TrackSize(collection string, size func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "cached_records",
		Help:        "Records currently held by a collection cache.",
		ConstLabels: prometheus.Labels{"collection": collection},
	}, func() float64 { return float64(size()) }))
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
