// Package evaluation runs the evaluate-then-rerank workflow: score a
// candidate, store the evaluation and ranking, then re-rank every ranked
// candidate.
//
// Evaluate and Recompute are serialized within the process. Across processes
// the repository's RewriteRanks is exclusive (an advisory lock in Postgres),
// so the final ranks always reflect every stored score.
//
// Storing an evaluation and re-ranking are separate steps. If the re-rank
// fails the evaluation is kept, Evaluate returns ErrRecomputeFailed, and the
// ranks are flagged dirty until a later Recompute (or the RecomputeJob)
// succeeds. During that window stored ranks may disagree with scores.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/ranking"
	"github.com/onnwee/talentboard/internal/scoring"
	"github.com/onnwee/talentboard/internal/tracing"
)

// DefaultLeaderboardSize is the number of candidates on the leaderboard.
const DefaultLeaderboardSize = 10

var (
	// ErrScoringFailed is returned when the scorer could not score a candidate.
	ErrScoringFailed = errors.New("scoring failed")

	// ErrRecomputeFailed is returned by Evaluate when the evaluation was stored
	// but re-ranking failed. Ranks stay stale until a later recompute.
	ErrRecomputeFailed = errors.New("evaluation stored but rank recompute failed")
)

// Triggers reported in RankingsUpdate.
const (
	TriggerEvaluate = "evaluate"
	TriggerManual   = "recompute"
	TriggerRepair   = "repair"
)

// RankingsUpdate is published after every successful recompute.
type RankingsUpdate struct {
	Type        string               `json:"type"`
	Trigger     string               `json:"trigger"`
	CandidateID int64                `json:"candidateId,omitempty"`
	RankedCount int                  `json:"rankedCount"`
	Leaderboard []*candidate.Profile `json:"leaderboard"`
	At          time.Time            `json:"at"`
}

// EventRankingsUpdated is the RankingsUpdate.Type value.
const EventRankingsUpdated = "rankings_updated"

// Publisher receives ranking updates. PublishRankings must not block.
type Publisher interface {
	PublishRankings(ctx context.Context, update RankingsUpdate)
}

// Config configures a Service.
type Config struct {
	// LeaderboardSize caps Leaderboard results. Values outside
	// 1..DefaultLeaderboardSize use DefaultLeaderboardSize.
	LeaderboardSize int
	// Metrics is optional.
	Metrics *Metrics
	// Publisher is optional.
	Publisher Publisher
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service coordinates scoring, persistence and re-ranking.
type Service struct {
	repo   candidate.Repository
	scorer scoring.Scorer
	config Config
	dirty  DirtyFlag

	// mu serializes evaluate+recompute sequences in this process.
	mu sync.Mutex
}

// NewService creates a Service.
func NewService(repo candidate.Repository, scorer scoring.Scorer, config Config) *Service {
	if config.LeaderboardSize <= 0 || config.LeaderboardSize > DefaultLeaderboardSize {
		config.LeaderboardSize = DefaultLeaderboardSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Service{repo: repo, scorer: scorer, config: config}
}

// Evaluate scores the candidate once, stores a new evaluation, upserts its
// ranking and re-ranks all ranked candidates.
//
// Returns candidate.ErrCandidateNotFound, writing nothing, if the id does not
// exist. Returns the stored evaluation together with ErrRecomputeFailed if
// re-ranking failed afterwards.
func (s *Service) Evaluate(ctx context.Context, candidateID int64) (eval *candidate.Evaluation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "evaluation.evaluate", attribute.Int64("candidate.id", candidateID))
	defer func() { endSpan(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.repo.Get(ctx, candidateID)
	if err != nil {
		if errors.Is(err, candidate.ErrCandidateNotFound) {
			s.countOutcome(OutcomeNotFound)
			return nil, err
		}
		s.countOutcome(OutcomeStoreFailed)
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}

	result, err := s.scorer.Score(ctx, &profile.Candidate)
	if err != nil {
		s.countOutcome(OutcomeScoringFailed)
		return nil, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	eval, err = s.repo.RecordEvaluation(ctx, &candidate.Evaluation{
		CandidateID:         candidateID,
		CrisisScore:         result.CrisisScore,
		SustainabilityScore: result.SustainabilityScore,
		MotivationScore:     result.MotivationScore,
		Feedback:            result.Feedback,
	}, result.OverallScore)
	if err != nil {
		if errors.Is(err, candidate.ErrCandidateNotFound) {
			s.countOutcome(OutcomeNotFound)
			return nil, err
		}
		s.countOutcome(OutcomeStoreFailed)
		return nil, fmt.Errorf("failed to record evaluation: %w", err)
	}

	s.config.Logger.InfoContext(ctx, "candidate evaluated",
		"candidate_id", candidateID,
		"evaluation_id", eval.ID,
		"overall_score", result.OverallScore)

	if _, rerr := s.recomputeLocked(ctx, TriggerEvaluate, candidateID); rerr != nil {
		s.countOutcome(OutcomeRecomputeFailed)
		s.config.Logger.ErrorContext(ctx, "evaluation stored but rank recompute failed; ranks are stale until the next successful recompute",
			"candidate_id", candidateID,
			"evaluation_id", eval.ID,
			"error", rerr)
		return eval, fmt.Errorf("%w: %w", ErrRecomputeFailed, rerr)
	}

	s.countOutcome(OutcomeSuccess)
	return eval, nil
}

// Recompute re-ranks every ranked candidate and returns the new ranked set.
func (s *Service) Recompute(ctx context.Context) ([]ranking.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(ctx, TriggerManual, 0)
}

// RepairIfDirty recomputes only when a previous recompute failed.
// Reports whether a repair ran.
func (s *Service) RepairIfDirty(ctx context.Context) (bool, error) {
	if dirty, _ := s.dirty.IsDirty(); !dirty {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have repaired while we waited for the lock.
	dirty, since := s.dirty.IsDirty()
	if !dirty {
		return false, nil
	}

	s.config.Logger.InfoContext(ctx, "repairing stale ranks", "stale_since", since)
	_, err := s.recomputeLocked(ctx, TriggerRepair, 0)
	return true, err
}

// Dirty reports whether stored ranks are known to be stale.
func (s *Service) Dirty() bool {
	dirty, _ := s.dirty.IsDirty()
	return dirty
}

// Leaderboard returns the top ranked candidates, best first.
func (s *Service) Leaderboard(ctx context.Context) ([]*candidate.Profile, error) {
	return s.repo.Leaderboard(ctx, s.config.LeaderboardSize)
}

// Snapshot returns the current leaderboard together with the size of the full
// ranked set, which may exceed the leaderboard length.
func (s *Service) Snapshot(ctx context.Context) (board []*candidate.Profile, rankedCount int, err error) {
	board, err = s.repo.Leaderboard(ctx, s.config.LeaderboardSize)
	if err != nil {
		return nil, 0, err
	}
	rankedCount, err = s.repo.CountRanked(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ranked candidates: %w", err)
	}
	return board, rankedCount, nil
}

// LeaderboardSize returns the configured leaderboard length.
func (s *Service) LeaderboardSize() int {
	return s.config.LeaderboardSize
}

func (s *Service) recomputeLocked(ctx context.Context, trigger string, candidateID int64) (ranked []ranking.Entry, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "evaluation.recompute", attribute.String("trigger", trigger))
	defer func() { endSpan(err) }()

	start := time.Now()
	ranked, err = s.repo.RewriteRanks(ctx, ranking.AssignRanks)
	if s.config.Metrics != nil {
		s.config.Metrics.ObserveRecompute(time.Since(start).Seconds(), err)
	}
	if err != nil {
		s.dirty.Mark()
		if s.config.Metrics != nil {
			s.config.Metrics.SetDirty(true)
		}
		return nil, fmt.Errorf("failed to rewrite ranks: %w", err)
	}

	s.dirty.Clear()
	if s.config.Metrics != nil {
		s.config.Metrics.SetDirty(false)
		s.config.Metrics.SetRanked(len(ranked), float64(time.Now().Unix()))
	}
	tracing.AddEvent(ctx, "ranks_rewritten", attribute.Int("ranked", len(ranked)))

	s.publish(ctx, trigger, candidateID, len(ranked))
	return ranked, nil
}

func (s *Service) publish(ctx context.Context, trigger string, candidateID int64, rankedCount int) {
	if s.config.Publisher == nil {
		return
	}

	board, err := s.repo.Leaderboard(ctx, s.config.LeaderboardSize)
	if err != nil {
		s.config.Logger.WarnContext(ctx, "failed to load leaderboard for publish", "error", err)
		return
	}

	s.config.Publisher.PublishRankings(ctx, RankingsUpdate{
		Type:        EventRankingsUpdated,
		Trigger:     trigger,
		CandidateID: candidateID,
		RankedCount: rankedCount,
		Leaderboard: board,
		At:          time.Now().UTC(),
	})
}

func (s *Service) countOutcome(outcome string) {
	if s.config.Metrics != nil {
		s.config.Metrics.IncEvaluations(outcome)
	}
}
