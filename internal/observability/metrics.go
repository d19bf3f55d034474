package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the detect pipeline.
type Metrics struct {
	DetectRequests *prometheus.CounterVec // labels: outcome={hit,miss,not_found,error}
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}

	ProviderRequestDuration  prometheus.Histogram
	InferenceRequestDuration prometheus.Histogram

	RecordsInserted    prometheus.Counter
	SingleflightShared prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DetectRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stopsign_api",
			Name:      "detect_requests_total",
			Help:      "Detection requests by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stopsign_api",
			Name:      "cache_lookups_total",
			Help:      "Detection cache lookups by result.",
		}, []string{"result"}),
		ProviderRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stopsign_api",
			Name:      "provider_request_duration_seconds",
			Help:      "Panorama fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		InferenceRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stopsign_api",
			Name:      "inference_request_duration_seconds",
			Help:      "Detection engine request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RecordsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stopsign_api",
			Name:      "records_inserted_total",
			Help:      "Detection records persisted to the cache store.",
		}),
		SingleflightShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stopsign_api",
			Name:      "singleflight_shared_total",
			Help:      "Requests that piggybacked on an in-flight miss for the same key.",
		}),
	}

	prometheus.MustRegister(
		m.DetectRequests,
		m.CacheLookups,
		m.ProviderRequestDuration,
		m.InferenceRequestDuration,
		m.RecordsInserted,
		m.SingleflightShared,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DetectRequests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "stopsign_api", Name: "detect_requests_total"}, []string{"outcome"}),
		CacheLookups:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "stopsign_api", Name: "cache_lookups_total"}, []string{"result"}),
		ProviderRequestDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "stopsign_api", Name: "provider_request_duration_seconds"}),
		InferenceRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "stopsign_api", Name: "inference_request_duration_seconds"}),
		RecordsInserted:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "stopsign_api", Name: "records_inserted_total"}),
		SingleflightShared:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "stopsign_api", Name: "singleflight_shared_total"}),
	}
}
