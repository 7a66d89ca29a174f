// Package telemetry registers the engine's Prometheus metrics,
// following CrlsMrls-dummybox/metrics's registry-plus-handler shape.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "urlscan_scan_duration_seconds",
		Help:    "Total wall-clock duration of a scan.",
		Buckets: prometheus.DefBuckets,
	})
	ScanResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlscan_scan_results_total",
		Help: "Completed scans by risk level and fast-path.",
	}, []string{"risk_level", "fast_path"})

	CategoryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urlscan_category_duration_seconds",
		Help:    "Duration of each category analyzer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})
	CategoryScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urlscan_category_score",
		Help:    "Score contributed by each category.",
		Buckets: []float64{0, 5, 10, 20, 30, 40, 50},
	}, []string{"category"})

	TISourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlscan_ti_source_requests_total",
		Help: "TI source queries by verdict.",
	}, []string{"source", "verdict"})
	TISourceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urlscan_ti_source_duration_seconds",
		Help:    "Duration of each TI source query.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "urlscan_circuit_breaker_state",
		Help: "Circuit breaker state by source (0=closed, 1=half-open, 2=open).",
	}, []string{"source"})

	AIAgreementRate = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "urlscan_ai_agreement_rate",
		Help:    "Fraction of AI models agreeing with the consensus verdict.",
		Buckets: []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
	})
	AIModelErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlscan_ai_model_errors_total",
		Help: "AI model call failures by model.",
	}, []string{"model"})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlscan_cache_hits_total",
		Help: "Cache lookups by tier and outcome.",
	}, []string{"tier", "outcome"})
)

var initOnce sync.Once
var registry *prometheus.Registry

// Init registers every collector exactly once and returns the registry.
func Init() *prometheus.Registry {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			ScanDuration, ScanResultsTotal,
			CategoryDuration, CategoryScore,
			TISourceRequestsTotal, TISourceDuration,
			CircuitBreakerState,
			AIAgreementRate, AIModelErrorsTotal,
			CacheHitsTotal,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return registry
}

// Handler serves the registered metrics over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Init(), promhttp.HandlerOpts{})
}

// ObserveDuration is a small helper for the common
// `defer telemetry.ObserveDuration(hist, time.Now())` pattern.
func ObserveDuration(h prometheus.Histogram, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
