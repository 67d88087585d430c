package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.IncJobsTotal(JobTypeRankRecompute, StatusSuccess)
		m.ObserveJobDuration(JobTypeRankRecompute, 0.2)
		m.IncJobErrors(JobTypeRankRecompute, "database_error")

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}

		expected := map[string]bool{
			MetricBackgroundJobsTotal:      false,
			MetricBackgroundJobsDuration:   false,
			MetricBackgroundJobErrorsTotal: false,
		}
		for _, family := range families {
			if _, ok := expected[family.GetName()]; ok {
				expected[family.GetName()] = true
			}
		}
		for name, found := range expected {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func histogramSampleCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	observer, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues() error = %v", err)
	}
	var m dto.Metric
	if err := observer.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.IncJobsTotal(JobTypeRankRecompute, StatusSuccess)
	}
	m.IncJobsTotal(JobTypeRankRecompute, StatusFailure)
	m.IncJobErrors(JobTypeLeaderboardExport, "upload_error")

	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeRankRecompute, StatusSuccess)); got != 3 {
		t.Errorf("success count = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeRankRecompute, StatusFailure)); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues(JobTypeLeaderboardExport, "upload_error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := NewMetrics()
	start := time.Now().Add(-50 * time.Millisecond)

	m.ObserveRun(JobTypeCandidateSeed, start, nil, "")
	m.ObserveRun(JobTypeCandidateSeed, start, errors.New("boom"), "database_error")

	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeCandidateSeed, StatusSuccess)); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeCandidateSeed, StatusFailure)); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues(JobTypeCandidateSeed, "database_error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
	if got := histogramSampleCount(t, m.jobsDuration, JobTypeCandidateSeed); got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}
}

func TestMetrics_JobTypeConstants(t *testing.T) {
	jobTypes := []string{JobTypeRankRecompute, JobTypeCandidateSeed, JobTypeLeaderboardExport}

	seen := make(map[string]bool)
	for _, jt := range jobTypes {
		if jt == "" {
			t.Error("job type constant is empty")
		}
		if seen[jt] {
			t.Errorf("duplicate job type constant: %s", jt)
		}
		seen[jt] = true
	}
}

func TestMetrics_Concurrency(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	const iterations, goroutines = 100, 10

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.IncJobsTotal(JobTypeRankRecompute, StatusSuccess)
				m.ObserveJobDuration(JobTypeRankRecompute, 0.01)
				m.IncJobErrors(JobTypeRankRecompute, "timeout")
			}
		}()
	}
	wg.Wait()

	want := float64(goroutines * iterations)
	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeRankRecompute, StatusSuccess)); got != want {
		t.Errorf("jobsTotal = %v, want %v", got, want)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues(JobTypeRankRecompute, "timeout")); got != want {
		t.Errorf("jobErrors = %v, want %v", got, want)
	}
	if got := histogramSampleCount(t, m.jobsDuration, JobTypeRankRecompute); got != uint64(want) {
		t.Errorf("jobsDuration samples = %d, want %v", got, want)
	}
}
