package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Classification Metrics
	ClassificationsTotal *prometheus.CounterVec
	CountryRequestsTotal *prometheus.CounterVec

	// Attribution store Metrics
	AttributionLookupsTotal *prometheus.CounterVec

	// Rate limiting
	RateLimitedTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		ClassificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classifications_total",
				Help: "Total number of served classifications by resolved country",
			},
			[]string{"country"},
		),

		CountryRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "country_requests_total",
				Help: "Total number of country endpoint requests by outcome",
			},
			[]string{"result"},
		),

		AttributionLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attribution_lookups_total",
				Help: "Total number of geolocation store lookups by result",
			},
			[]string{"result"},
		),

		RateLimitedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}
