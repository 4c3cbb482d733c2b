// Package metrics exposes Prometheus collectors for the grading service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal                  *prometheus.CounterVec
	cacheLookupsTotal          *prometheus.CounterVec
	cacheWritesTotal           *prometheus.CounterVec
	scrapeRequestsTotal        *prometheus.CounterVec
	gradingFramesTotal         *prometheus.CounterVec
	gradingFallbacksTotal      prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegrade_runs_total",
				Help: "Total number of grading runs, labeled by terminal status.",
			},
			[]string{"status"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegrade_cache_lookups_total",
				Help: "Total number of report cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		cacheWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegrade_cache_writes_total",
				Help: "Total number of report cache writes, labeled by status.",
			},
			[]string{"status"},
		)

		scrapeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegrade_scrape_requests_total",
				Help: "Total number of scrape provider calls, labeled by target and status.",
			},
			[]string{"target", "status"},
		)

		gradingFramesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegrade_grading_frames_total",
				Help: "Total number of grading stream frames, labeled by decode status.",
			},
			[]string{"status"},
		)

		gradingFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitegrade_grading_fallbacks_total",
				Help: "Total number of rate-limit fallbacks to the lower-tier model.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun increments the run counter for the given terminal status.
func ObserveRun(status string) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveCacheLookup increments the cache lookup counter.
func ObserveCacheLookup(result string) {
	if cacheLookupsTotal == nil {
		return
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveCacheWrite increments the cache write counter.
func ObserveCacheWrite(status string) {
	if cacheWritesTotal == nil {
		return
	}
	cacheWritesTotal.WithLabelValues(status).Inc()
}

// ObserveScrape increments the scrape request counter.
func ObserveScrape(target, status string) {
	if scrapeRequestsTotal == nil {
		return
	}
	scrapeRequestsTotal.WithLabelValues(target, status).Inc()
}

// ObserveGradingFrame increments the frame counter for ok or malformed frames.
func ObserveGradingFrame(status string) {
	if gradingFramesTotal == nil {
		return
	}
	gradingFramesTotal.WithLabelValues(status).Inc()
}

// ObserveGradingFallback counts a fallback to the lower-tier model.
func ObserveGradingFallback() {
	if gradingFallbacksTotal == nil {
		return
	}
	gradingFallbacksTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
