// Package middleware holds the HTTP middleware chain for the talentboard API:
// request IDs, structured logging, tracing, CORS, rate limiting and the
// Prometheus metrics those layers record.
package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricEvaluateLimitChecks      = "talentboard_evaluate_limit_checks_total"
	MetricEvaluateLimitRedisErrors = "talentboard_evaluate_limit_redis_errors_total"
	MetricHTTPRequestDuration      = "http_request_duration_seconds"
	MetricHTTPRequestsTotal        = "http_requests_total"
	MetricHTTPRequestSizeBytes     = "http_request_size_bytes"
	MetricHTTPResponseSizeBytes    = "http_response_size_bytes"
)

// Limiter outcomes used as label values.
const (
	LimitAllowed = "allowed"
	LimitBlocked = "blocked"
)

// Bodies range from small JSON documents to the leaderboard workbook.
var sizeBuckets = prometheus.ExponentialBuckets(64, 4, 8) // 64 B to 1 MiB

// Metrics holds the collectors recorded by the HTTP middleware.
type Metrics struct {
	limitChecks      *prometheus.CounterVec
	limitRedisErrors prometheus.Counter

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	requestLabels := []string{"method", "path", "status"}
	return &Metrics{
		limitChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEvaluateLimitChecks,
			Help: "Evaluate rate limit decisions by route and outcome",
		}, []string{"path", "outcome"}),
		limitRedisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEvaluateLimitRedisErrors,
			Help: "Evaluate requests let through because the Redis limiter failed",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestDuration,
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, requestLabels),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "HTTP requests by route and status",
		}, requestLabels),
		requestSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestSizeBytes,
			Help:    "HTTP request body size in bytes",
			Buckets: sizeBuckets,
		}, requestLabels),
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPResponseSizeBytes,
			Help:    "HTTP response body size in bytes",
			Buckets: sizeBuckets,
		}, requestLabels),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveLimit records one limiter decision for a normalized path.
func (m *Metrics) ObserveLimit(path string, allowed bool) {
	outcome := LimitAllowed
	if !allowed {
		outcome = LimitBlocked
	}
	m.limitChecks.WithLabelValues(path, outcome).Inc()
}

// IncLimitRedisErrors counts a request let through because Redis failed.
func (m *Metrics) IncLimitRedisErrors() {
	m.limitRedisErrors.Inc()
}

// ObserveHTTPRequest records one request. path must already be normalized.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64, requestSize, responseSize int64) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration)
	m.requestsTotal.WithLabelValues(method, path, status).Inc()
	m.requestSize.WithLabelValues(method, path, status).Observe(float64(requestSize))
	m.responseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.limitChecks,
		m.limitRedisErrors,
		m.requestDuration,
		m.requestsTotal,
		m.requestSize,
		m.responseSize,
	}
}
