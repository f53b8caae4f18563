// Package metrics exposes Prometheus collectors for the HTTP API and the
// pricing use cases.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubchantier/internal/domain/quote/dpgf"
	"hubchantier/internal/domain/quote/pricing"
)

const namespace = "hubchantier"

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	imports        prometheus.Counter
	importLines    *prometheus.CounterVec
	importWarnings prometheus.Counter

	marginComputations prometheus.Counter
	marginLines        prometheus.Histogram
}

var (
	_ pricing.Observer = (*Metrics)(nil)
	_ dpgf.Observer    = (*Metrics)(nil)
)

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		imports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dpgf",
			Name:      "imports_total",
			Help:      "Successful DPGF imports.",
		}),
		importLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dpgf",
			Name:      "lines_total",
			Help:      "DPGF rows by outcome (created, skipped).",
		}, []string{"outcome"}),
		importWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dpgf",
			Name:      "warnings_total",
			Help:      "Tolerated DPGF row problems.",
		}),
		marginComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "margin_computations_total",
			Help:      "Margin reports computed.",
		}),
		marginLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "report_lines",
			Help:      "Number of lines per computed margin report.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.imports,
		m.importLines,
		m.importWarnings,
		m.marginComputations,
		m.marginLines,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// PoolStats is the connection pool snapshot exported as gauges.
type PoolStats struct {
	Total, Acquired, Idle, Max int32
	AcquireWait                time.Duration
}

// TrackPool exports the database pool usage. source is called on every
// scrape.
func (m *Metrics) TrackPool(source func() PoolStats) {
	gauge := func(name, help string, value func(PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(source()) })
	}
	m.registry.MustRegister(
		gauge("connections_total", "Open connections.", func(s PoolStats) float64 { return float64(s.Total) }),
		gauge("connections_acquired", "Connections in use.", func(s PoolStats) float64 { return float64(s.Acquired) }),
		gauge("connections_idle", "Idle connections.", func(s PoolStats) float64 { return float64(s.Idle) }),
		gauge("connections_max", "Pool size limit.", func(s PoolStats) float64 { return float64(s.Max) }),
		gauge("acquire_wait_seconds", "Cumulative time spent waiting for a connection.", func(s PoolStats) float64 { return s.AcquireWait.Seconds() }),
	)
}

// ObserveHTTP records one served request. route is the matched pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveReport implements pricing.Observer.
func (m *Metrics) ObserveReport(r *pricing.Report) {
	m.marginComputations.Inc()
	m.marginLines.Observe(float64(len(r.Lines)))
}

// ObserveImport implements dpgf.Observer.
func (m *Metrics) ObserveImport(r *dpgf.Result) {
	m.imports.Inc()
	m.importLines.WithLabelValues("created").Add(float64(r.LinesCreated))
	m.importLines.WithLabelValues("skipped").Add(float64(r.LinesSkipped))
	m.importWarnings.Add(float64(len(r.Warnings)))
}
