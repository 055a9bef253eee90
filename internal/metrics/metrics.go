// Package metrics exposes Prometheus collectors for the crawl pipeline and
// the retrieval API.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	domainsDiscoveredTotal *prometheus.CounterVec
	pagesFetchedTotal      *prometheus.CounterVec
	productsTotal          *prometheus.CounterVec
	sessionDurationSeconds prometheus.Histogram
	sessionActive          prometheus.Gauge
	queriesTotal           *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		domainsDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionbot_domains_discovered_total",
				Help: "Total candidate domains admitted, labeled by search engine.",
			},
			[]string{"engine"},
		)

		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionbot_pages_fetched_total",
				Help: "Total pages fetched during crawl sessions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		productsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionbot_products_total",
				Help: "Total product candidates processed, labeled by outcome and reason.",
			},
			[]string{"outcome", "reason"},
		)

		sessionDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fashionbot_session_duration_seconds",
				Help:    "Histogram of crawl session wall-clock durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		sessionActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fashionbot_session_active",
				Help: "1 while a crawl session is running, 0 otherwise.",
			},
		)

		queriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionbot_queries_total",
				Help: "Total retrieval queries served, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fashionbot_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDomainDiscovered increments the discovery counter for an engine.
func ObserveDomainDiscovered(engine string) {
	domainsDiscoveredTotal.WithLabelValues(engine).Inc()
}

// ObservePageFetch counts one page fetch with the given outcome.
func ObservePageFetch(outcome string) {
	pagesFetchedTotal.WithLabelValues(outcome).Inc()
}

// ObserveProduct counts one product candidate outcome.
func ObserveProduct(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	productsTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveSession records a finished crawl session.
func ObserveSession(duration time.Duration) {
	sessionDurationSeconds.Observe(duration.Seconds())
}

// SetSessionActive flips the active-session gauge.
func SetSessionActive(active bool) {
	if active {
		sessionActive.Set(1)
		return
	}
	sessionActive.Set(0)
}

// ObserveQuery counts one retrieval query with its result class.
func ObserveQuery(result string) {
	queriesTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records an HTTP request latency.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
