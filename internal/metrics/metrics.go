// Package metrics exposes Prometheus instruments for report loads, the
// HTTP view cache and served requests. Each Metrics owns its registry so
// tests and multiple servers never collide on the default registerer.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transstats/internal/reports"
)

const namespace = "transstats"

// Fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	fetches      *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	monthsLoaded prometheus.Gauge
	channels     prometheus.Gauge
	viewCache    *prometheus.CounterVec
	evictions    *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration prometheus.Histogram
	rateLimited  prometheus.Counter
	security     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_fetches_total",
			Help:      "Monthly report fetches by outcome.",
		}, []string{"outcome"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Completed load attempts by result.",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Wall time of a full load, fetch through normalization.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		monthsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "months_loaded",
			Help:      "Months held after the last successful load.",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Size of the channel universe after the last successful load.",
		}),
		viewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_lookups_total",
			Help:      "View cache lookups by result.",
		}, []string{"result"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_evictions_total",
			Help:      "View cache evictions by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		security: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Suspicious requests and unparseable client addresses seen by the detector.",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		m.fetches,
		m.loads,
		m.loadDuration,
		m.monthsLoaded,
		m.channels,
		m.viewCache,
		m.evictions,
		m.httpRequests,
		m.httpDuration,
		m.rateLimited,
		m.security,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the /metrics scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FetchCompleted records one report fetch.
func (m *Metrics) FetchCompleted(err error) {
	m.fetches.WithLabelValues(FetchOutcome(err)).Inc()
}

// LoadCompleted records one load attempt. months and channels are only
// updated on success.
func (m *Metrics) LoadCompleted(d time.Duration, months, channels int, err error) {
	m.loadDuration.Observe(d.Seconds())
	if err != nil {
		m.loads.WithLabelValues("error").Inc()
		return
	}
	m.loads.WithLabelValues("ok").Inc()
	m.monthsLoaded.Set(float64(months))
	m.channels.Set(float64(channels))
}

// CacheLookup records a view cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.viewCache.WithLabelValues("hit").Inc()
		return
	}
	m.viewCache.WithLabelValues("miss").Inc()
}

// CacheEvicted records one view cache eviction.
func (m *Metrics) CacheEvicted(reason string) {
	m.evictions.WithLabelValues(reason).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.Observe(d.Seconds())
}

// RateLimited records one rejected request.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

// SecurityEvent records one request detector event.
func (m *Metrics) SecurityEvent(event string) {
	m.security.WithLabelValues(event).Inc()
}

// FetchOutcome classifies a fetch error into a metric label.
func FetchOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, reports.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, reports.ErrInvalidReport):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
