package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for geo resolution.
type Metrics struct {
	Resolutions    *prometheus.CounterVec
	RemoteLookups  *prometheus.CounterVec
	RateLimitHits  prometheus.Counter
	FallbacksUsed  *prometheus.CounterVec
	ResolveLatency prometheus.Histogram
}

// New registers and returns geo metrics collectors.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_geo_resolutions_total",
			Help: "Total geo resolutions, labeled by source",
		}, []string{"source"}),
		RemoteLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_geo_remote_lookups_total",
			Help: "Remote geo lookups, labeled by endpoint role and outcome",
		}, []string{"endpoint", "outcome"}),
		RateLimitHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_geo_rate_limit_hits_total",
			Help: "Remote lookups short-circuited by the sliding window limiter",
		}),
		FallbacksUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_geo_fallbacks_total",
			Help: "Fallback strategy applications, labeled by strategy",
		}, []string{"strategy"}),
		ResolveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_geo_resolve_latency_seconds",
			Help:    "Latency of geo resolution in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementResolution records a successful resolution by source.
func (m *Metrics) IncrementResolution(source string) {
	m.Resolutions.WithLabelValues(source).Inc()
}

// IncrementRemoteLookup records a remote lookup attempt outcome.
func (m *Metrics) IncrementRemoteLookup(endpoint, outcome string) {
	m.RemoteLookups.WithLabelValues(endpoint, outcome).Inc()
}

// IncrementFallback records a fallback application by strategy.
func (m *Metrics) IncrementFallback(strategy string) {
	m.FallbacksUsed.WithLabelValues(strategy).Inc()
}
