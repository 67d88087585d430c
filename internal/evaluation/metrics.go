package evaluation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricEvaluationsTotal       = "talentboard_evaluations_total"
	MetricRecomputeTotal         = "talentboard_rank_recompute_total"
	MetricRecomputeErrors        = "talentboard_rank_recompute_errors_total"
	MetricRecomputeDuration      = "talentboard_rank_recompute_duration_seconds"
	MetricRankedCandidates       = "talentboard_ranked_candidates"
	MetricLastRecomputeTimestamp = "talentboard_last_rank_recompute_timestamp"
	MetricRanksDirty             = "talentboard_ranks_dirty"
)

// Evaluation outcomes used as label values.
const (
	OutcomeSuccess         = "success"
	OutcomeNotFound        = "not_found"
	OutcomeScoringFailed   = "scoring_failed"
	OutcomeStoreFailed     = "store_failed"
	OutcomeRecomputeFailed = "recompute_failed"
)

// Metrics contains Prometheus metrics for evaluations and rank recomputes.
// All operations are thread-safe.
type Metrics struct {
	evaluationsTotal       *prometheus.CounterVec
	recomputeTotal         prometheus.Counter
	recomputeErrors        prometheus.Counter
	recomputeDuration      prometheus.Histogram
	rankedCandidates       prometheus.Gauge
	lastRecomputeTimestamp prometheus.Gauge
	ranksDirty             prometheus.Gauge
}

// NewMetrics creates a Metrics instance. Call Register to expose it.
func NewMetrics() *Metrics {
	return &Metrics{
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEvaluationsTotal,
			Help: "Total number of evaluate requests by outcome",
		}, []string{"outcome"}),
		recomputeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecomputeTotal,
			Help: "Total number of full rank recomputations",
		}),
		recomputeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecomputeErrors,
			Help: "Total number of failed rank recomputations",
		}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRecomputeDuration,
			Help:    "Histogram of rank recomputation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		rankedCandidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricRankedCandidates,
			Help: "Number of candidates ranked by the last recomputation",
		}),
		lastRecomputeTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastRecomputeTimestamp,
			Help: "Unix timestamp of the last successful rank recomputation",
		}),
		ranksDirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricRanksDirty,
			Help: "1 while stored ranks are stale after a failed recomputation, else 0",
		}),
	}
}

// Register registers all metrics with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncEvaluations counts one evaluate request with the given outcome.
func (m *Metrics) IncEvaluations(outcome string) {
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecompute records a finished recompute.
func (m *Metrics) ObserveRecompute(seconds float64, err error) {
	m.recomputeTotal.Inc()
	m.recomputeDuration.Observe(seconds)
	if err != nil {
		m.recomputeErrors.Inc()
	}
}

// SetRanked records the ranked-set size and completion time of a successful recompute.
func (m *Metrics) SetRanked(count int, unixSeconds float64) {
	m.rankedCandidates.Set(float64(count))
	m.lastRecomputeTimestamp.Set(unixSeconds)
}

// SetDirty sets the stale-ranks gauge.
func (m *Metrics) SetDirty(dirty bool) {
	if dirty {
		m.ranksDirty.Set(1)
		return
	}
	m.ranksDirty.Set(0)
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.evaluationsTotal,
		m.recomputeTotal,
		m.recomputeErrors,
		m.recomputeDuration,
		m.rankedCandidates,
		m.lastRecomputeTimestamp,
		m.ranksDirty,
	}
}
