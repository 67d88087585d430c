package middleware

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("second Register() on the same registry must fail")
	}
	if got := len(m.Collectors()); got != 6 {
		t.Errorf("Collectors() = %d, want 6", got)
	}
}

func TestMetrics_EvaluateLimit(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	const evaluate = "/api/candidates/{id}/evaluate"
	m.ObserveLimit(evaluate, true)
	m.ObserveLimit(evaluate, true)
	m.ObserveLimit(evaluate, false)
	m.IncLimitRedisErrors()
	m.IncLimitRedisErrors()

	want := `
# HELP talentboard_evaluate_limit_checks_total Evaluate rate limit decisions by route and outcome
# TYPE talentboard_evaluate_limit_checks_total counter
talentboard_evaluate_limit_checks_total{outcome="allowed",path="/api/candidates/{id}/evaluate"} 2
talentboard_evaluate_limit_checks_total{outcome="blocked",path="/api/candidates/{id}/evaluate"} 1
# HELP talentboard_evaluate_limit_redis_errors_total Evaluate requests let through because the Redis limiter failed
# TYPE talentboard_evaluate_limit_redis_errors_total counter
talentboard_evaluate_limit_redis_errors_total 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(want),
		MetricEvaluateLimitChecks, MetricEvaluateLimitRedisErrors)
	if err != nil {
		t.Error(err)
	}
}

func TestMetrics_ObserveHTTPRequest(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTPRequest("GET", "/api/leaderboard", "200", 0.02, 0, 512)
	m.ObserveHTTPRequest("GET", "/api/leaderboard", "200", 0.03, 0, 480)
	m.ObserveHTTPRequest("POST", "/api/candidates/{id}/evaluate", "429", 0.001, 0, 60)

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/leaderboard", "200")); got != 2 {
		t.Errorf("leaderboard requests = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.requestDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
	if got := testutil.CollectAndCount(m.responseSize); got != 2 {
		t.Errorf("response size series = %d, want 2", got)
	}
}
