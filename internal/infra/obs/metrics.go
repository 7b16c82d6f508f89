package obs

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ratedesk/internal/app/sequence"
)

// Metrics owns a private registry so tests and multiple servers never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	queries         *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	warnings        *prometheus.CounterVec
	reloads         *prometheus.CounterVec
	referenceRows   *prometheus.GaugeVec
	outboxPublished *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries handled by the application bus",
		}, []string{"query", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handling latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_warnings_total",
			Help:      "Degraded parts of rate calculations by warning code",
		}, []string{"code"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_reloads_total",
			Help:      "Reference data reload attempts",
		}, []string{"outcome"}),
		referenceRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reference_rows",
			Help:      "Rows in the live reference snapshot by table",
		}, []string{"table"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox publication attempts",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.queries, m.queryDuration,
		m.warnings, m.reloads, m.referenceRows, m.outboxPublished,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveQuery implements the query bus metrics observer.
func (m *Metrics) ObserveQuery(key string, err error, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, sequence.ErrSuperseded):
		outcome = "superseded"
	default:
		outcome = "error"
	}
	m.queries.WithLabelValues(key, outcome).Inc()
	m.queryDuration.WithLabelValues(key).Observe(elapsed.Seconds())
}

func (m *Metrics) CountWarning(code string) {
	m.warnings.WithLabelValues(code).Inc()
}

func (m *Metrics) CountReload(err error) {
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
}

// SetReferenceRows publishes the row count of one snapshot table.
func (m *Metrics) SetReferenceRows(table string, n int) {
	m.referenceRows.WithLabelValues(table).Set(float64(n))
}

func (m *Metrics) CountPublished(err error) {
	if err != nil {
		m.outboxPublished.WithLabelValues("failed").Inc()
		return
	}
	m.outboxPublished.WithLabelValues("sent").Inc()
}

// CountDropped records an event evicted from a full memory outbox before it was published.
func (m *Metrics) CountDropped() {
	m.outboxPublished.WithLabelValues("dropped").Inc()
}
