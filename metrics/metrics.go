// Package metrics provides the Prometheus collectors of the lookup service.
//
// HTTP:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight
//   - rate_limiter_buckets_total
//
// Lookup pipeline:
//   - lookup_total{status}
//   - lookup_stage_outcomes_total{stage,outcome}
//   - lookup_stage_duration_seconds{stage}
//   - lookup_cache_requests_total{result}
//
// Upstreams:
//   - upstream_requests_total{endpoint,result}
//   - upstream_breaker_state{endpoint}
//   - fallback_usages_entries
//
// All collectors are registered with the default registry on package init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage outcomes
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	LookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_total",
			Help: "Medication lookups by terminal status",
		},
		[]string{"status"},
	)

	StageOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_stage_outcomes_total",
			Help: "Pipeline stage runs by outcome",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookup_stage_duration_seconds",
			Help:    "Pipeline stage latency, retries included",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_cache_requests_total",
			Help: "Result cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Upstream calls by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "Circuit breaker state per upstream endpoint (0 closed, 1 half-open, 2 open)",
		},
		[]string{"endpoint"},
	)

	FallbackEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fallback_usages_entries",
			Help: "Entries in the local usage fallback table",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		RateLimiterBucketsTotal,
		LookupTotal,
		StageOutcomes,
		StageDuration,
		CacheRequests,
		UpstreamRequests,
		BreakerState,
		FallbackEntries,
	)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
