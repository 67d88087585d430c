// Package seed fills an empty store with demo candidates and initial scores.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/jobs"
	"github.com/onnwee/talentboard/internal/ranking"
	"github.com/onnwee/talentboard/internal/scoring"
)

// DefaultEvaluateFraction is the share of seeded candidates that get an
// initial evaluation.
const DefaultEvaluateFraction = 0.6

// Recomputer re-ranks all ranked candidates.
type Recomputer interface {
	Recompute(ctx context.Context) ([]ranking.Entry, error)
}

// JobMetrics receives job metrics for seed runs.
type JobMetrics interface {
	ObserveRun(jobType string, start time.Time, err error, errorType string)
}

// Config configures a Seeder.
type Config struct {
	// Samples defaults to SampleCandidates.
	Samples []Sample
	// EvaluateFraction defaults to DefaultEvaluateFraction.
	EvaluateFraction float64
	// Rand picks which candidates are evaluated. Defaults to a random PCG source.
	Rand       *rand.Rand
	Logger     *slog.Logger
	JobMetrics JobMetrics
}

// Result summarizes a seed run.
type Result struct {
	Skipped   bool `json:"skipped"`
	Created   int  `json:"created"`
	Evaluated int  `json:"evaluated"`
	Ranked    int  `json:"ranked"`
}

// Seeder populates an empty repository.
type Seeder struct {
	repo       candidate.Repository
	scorer     scoring.Scorer
	recomputer Recomputer
	config     Config
}

// New creates a Seeder.
func New(repo candidate.Repository, scorer scoring.Scorer, recomputer Recomputer, config Config) *Seeder {
	if config.Samples == nil {
		config.Samples = SampleCandidates
	}
	if config.EvaluateFraction <= 0 || config.EvaluateFraction > 1 {
		config.EvaluateFraction = DefaultEvaluateFraction
	}
	if config.Rand == nil {
		config.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Seeder{repo: repo, scorer: scorer, recomputer: recomputer, config: config}
}

// Run seeds the store when it holds no candidates. Evaluated candidates are
// scored through the scorer and the whole set is re-ranked once at the end.
func (s *Seeder) Run(ctx context.Context) (result Result, err error) {
	start := time.Now()
	defer func() {
		if s.config.JobMetrics != nil && !result.Skipped {
			s.config.JobMetrics.ObserveRun(jobs.JobTypeCandidateSeed, start, err, "database_error")
		}
	}()

	count, err := s.repo.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count candidates: %w", err)
	}
	if count > 0 {
		s.config.Logger.InfoContext(ctx, "skipping seed, candidates already present", "count", count)
		result.Skipped = true
		return result, nil
	}

	s.config.Logger.InfoContext(ctx, "seeding candidates", "count", len(s.config.Samples))

	for _, sample := range s.config.Samples {
		c, err := candidate.NewCandidate(sample.Name, sample.YearsExperience, sample.Skills)
		if err != nil {
			return result, fmt.Errorf("invalid seed candidate %q: %w", sample.Name, err)
		}
		created, err := s.repo.Create(ctx, c)
		if err != nil {
			return result, fmt.Errorf("failed to create candidate %q: %w", sample.Name, err)
		}
		result.Created++

		if s.config.Rand.Float64() >= s.config.EvaluateFraction {
			continue
		}

		scored, err := s.scorer.Score(ctx, created)
		if err != nil {
			return result, fmt.Errorf("failed to score candidate %d: %w", created.ID, err)
		}
		if _, err := s.repo.RecordEvaluation(ctx, &candidate.Evaluation{
			CandidateID:         created.ID,
			CrisisScore:         scored.CrisisScore,
			SustainabilityScore: scored.SustainabilityScore,
			MotivationScore:     scored.MotivationScore,
			Feedback:            scored.Feedback,
		}, scored.OverallScore); err != nil {
			return result, fmt.Errorf("failed to record evaluation for candidate %d: %w", created.ID, err)
		}
		result.Evaluated++
	}

	ranked, err := s.recomputer.Recompute(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to rank seeded candidates: %w", err)
	}
	result.Ranked = len(ranked)

	s.config.Logger.InfoContext(ctx, "seed complete",
		"created", result.Created,
		"evaluated", result.Evaluated,
		"ranked", result.Ranked)
	return result, nil
}
