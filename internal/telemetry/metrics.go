// Package telemetry holds the process-wide Prometheus registry and the
// operational metrics recorded by the data layer and the analysis pipeline.
// The analytics core itself records nothing here; instrumentation happens at
// the collaborator boundaries.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the process registry exposed at /metrics by the HTTP server.
var Registry = prometheus.NewRegistry()

var (
	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quantdesk_analysis_duration_seconds",
			Help:    "Duration of analysis pipeline runs by kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"kind"},
	)

	activeAnalyses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantdesk_active_analyses",
			Help: "Number of analysis runs currently in flight",
		},
	)

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantdesk_provider_requests_total",
			Help: "Market data provider requests by outcome",
		},
		[]string{"result"},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantdesk_cache_hits_total",
			Help: "Price cache hits",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantdesk_cache_misses_total",
			Help: "Price cache misses",
		},
	)
)

func init() {
	Registry.MustRegister(
		analysisDuration,
		activeAnalyses,
		providerRequests,
		cacheHits,
		cacheMisses,
	)
}

// ObserveAnalysis records one pipeline run of the given kind.
func ObserveAnalysis(kind string, d time.Duration) {
	analysisDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// AnalysisStarted increments the in-flight gauge; pair with AnalysisDone.
func AnalysisStarted() { activeAnalyses.Inc() }

// AnalysisDone decrements the in-flight gauge.
func AnalysisDone() { activeAnalyses.Dec() }

// ProviderRequest counts one upstream data request by outcome
// ("ok", "error", "rejected").
func ProviderRequest(result string) { providerRequests.WithLabelValues(result).Inc() }

// CacheHit counts a price cache hit.
func CacheHit() { cacheHits.Inc() }

// CacheMiss counts a price cache miss.
func CacheMiss() { cacheMisses.Inc() }
