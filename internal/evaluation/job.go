package evaluation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/talentboard/internal/jobs"
)

// DefaultRecomputeInterval is the default interval between repair checks.
const DefaultRecomputeInterval = 30 * time.Second

// DefaultRecomputeTimeout bounds a single repair run.
const DefaultRecomputeTimeout = 30 * time.Second

// JobMetrics receives background job metrics.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// Repairer is the part of Service the RecomputeJob drives.
type Repairer interface {
	RepairIfDirty(ctx context.Context) (bool, error)
}

// RecomputeJobConfig configures the rank repair job.
type RecomputeJobConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	Logger     *slog.Logger
	JobMetrics JobMetrics
}

// RecomputeJob periodically re-ranks when a previous recompute failed.
type RecomputeJob struct {
	config   RecomputeJobConfig
	repairer Repairer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecomputeJob creates a repair job for repairer.
func NewRecomputeJob(config RecomputeJobConfig, repairer Repairer) *RecomputeJob {
	if config.Interval <= 0 {
		config.Interval = DefaultRecomputeInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRecomputeTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RecomputeJob{config: config, repairer: repairer}
}

// Start runs the job in a background goroutine. Calling Start on a running
// job is a no-op.
func (j *RecomputeJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})

	go j.run(ctx, j.stopCh, j.doneCh)
}

// Stop signals the job to stop and waits for it to finish.
func (j *RecomputeJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh, doneCh := j.stopCh, j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is running.
func (j *RecomputeJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *RecomputeJob) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("rank repair job stopping due to context cancellation")
			return
		case <-stopCh:
			j.config.Logger.Info("rank repair job stopping due to stop signal")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *RecomputeJob) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, j.config.Timeout)
	defer cancel()

	start := time.Now()
	ran, err := j.repairer.RepairIfDirty(ctx)
	if !ran {
		return
	}

	duration := time.Since(start).Seconds()
	if err != nil {
		errorType := "database_error"
		if ctx.Err() != nil {
			errorType = "timeout"
		}
		j.config.Logger.Error("rank repair failed", "error", err, "error_type", errorType)
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobErrors(jobs.JobTypeRankRecompute, errorType)
			j.config.JobMetrics.IncJobsTotal(jobs.JobTypeRankRecompute, jobs.StatusFailure)
			j.config.JobMetrics.ObserveJobDuration(jobs.JobTypeRankRecompute, duration)
		}
		return
	}

	j.config.Logger.Info("rank repair completed", "duration_seconds", duration)
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobs.JobTypeRankRecompute, jobs.StatusSuccess)
		j.config.JobMetrics.ObserveJobDuration(jobs.JobTypeRankRecompute, duration)
	}
}
