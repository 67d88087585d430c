package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/ranking"
	"github.com/onnwee/talentboard/internal/scoring"
)

// scriptedScorer returns its results in order, repeating the last one.
type scriptedScorer struct {
	mu      sync.Mutex
	results []scoring.FixedScorer
	calls   int
}

func (s *scriptedScorer) Score(ctx context.Context, c *candidate.Candidate) (scoring.Result, error) {
	s.mu.Lock()
	i := min(s.calls, len(s.results)-1)
	s.calls++
	s.mu.Unlock()
	return s.results[i].Score(ctx, c)
}

func uniform(score int) scoring.FixedScorer {
	return scoring.FixedScorer{Crisis: score, Sustainability: score, Motivation: score}
}

type failingScorer struct{ err error }

func (f failingScorer) Score(context.Context, *candidate.Candidate) (scoring.Result, error) {
	return scoring.Result{}, f.err
}

// flakyRepo fails RewriteRanks while failRewrite is set.
type flakyRepo struct {
	*candidate.InMemoryRepository
	mu          sync.Mutex
	failRewrite bool
}

func (r *flakyRepo) setFail(v bool) {
	r.mu.Lock()
	r.failRewrite = v
	r.mu.Unlock()
}

func (r *flakyRepo) RewriteRanks(ctx context.Context, rerank candidate.RerankFunc) ([]ranking.Entry, error) {
	r.mu.Lock()
	fail := r.failRewrite
	r.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return r.InMemoryRepository.RewriteRanks(ctx, rerank)
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []RankingsUpdate
}

func (p *recordingPublisher) PublishRankings(ctx context.Context, u RankingsUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

func seedCandidates(t *testing.T, repo candidate.Repository, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		c, err := candidate.NewCandidate(fmt.Sprintf("Candidate %c", 'A'+i), i+1, []string{"Waste Management"})
		if err != nil {
			t.Fatalf("NewCandidate() error = %v", err)
		}
		created, err := repo.Create(context.Background(), c)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, created.ID)
	}
	return ids
}

func TestEvaluate_ThreeCandidateScenario(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 3)
	scorer := &scriptedScorer{results: []scoring.FixedScorer{uniform(95), uniform(70)}}
	svc := NewService(repo, scorer, Config{})
	ctx := context.Background()

	eval, err := svc.Evaluate(ctx, ids[1])
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if eval.CandidateID != ids[1] || eval.ID == 0 {
		t.Errorf("unexpected evaluation %+v", eval)
	}

	board, err := svc.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(board) != 1 || board[0].ID != ids[1] || board[0].Ranking.Rank != 1 {
		t.Fatalf("expected candidate 2 alone at rank 1, got %+v", board)
	}
	if board[0].Ranking.OverallScore != 95 {
		t.Errorf("overall = %v, want 95", board[0].Ranking.OverallScore)
	}

	if _, err := svc.Evaluate(ctx, ids[0]); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	board, err = svc.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(board))
	}
	if board[0].ID != ids[1] || board[0].Ranking.Rank != 1 {
		t.Errorf("expected candidate 2 at rank 1, got %d at %d", board[0].ID, board[0].Ranking.Rank)
	}
	if board[1].ID != ids[0] || board[1].Ranking.Rank != 2 {
		t.Errorf("expected candidate 1 at rank 2, got %d at %d", board[1].ID, board[1].Ranking.Rank)
	}
	for _, p := range board {
		if p.ID == ids[2] {
			t.Error("unevaluated candidate 3 must not appear on the leaderboard")
		}
	}

	p3, err := repo.Get(ctx, ids[2])
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p3.Ranking != nil || p3.Evaluation != nil {
		t.Error("candidate 3 should have no ranking or evaluation")
	}
}

func TestEvaluate_NotFoundWritesNothing(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	seedCandidates(t, repo, 1)
	metrics := NewMetrics()
	svc := NewService(repo, scoring.NewRandomScorer(nil, nil), Config{Metrics: metrics})

	_, err := svc.Evaluate(context.Background(), 999)
	if !errors.Is(err, candidate.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}

	board, _ := repo.Leaderboard(context.Background(), 0)
	if len(board) != 0 {
		t.Errorf("expected no rankings, got %d", len(board))
	}
	profiles, _ := repo.List(context.Background())
	for _, p := range profiles {
		if p.Evaluation != nil {
			t.Errorf("candidate %d unexpectedly has an evaluation", p.ID)
		}
	}
	if got := testutil.ToFloat64(metrics.evaluationsTotal.WithLabelValues(OutcomeNotFound)); got != 1 {
		t.Errorf("not_found outcome count = %v, want 1", got)
	}
}

func TestEvaluate_ScoringFailure(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 1)
	svc := NewService(repo, failingScorer{err: errors.New("model unavailable")}, Config{})

	if _, err := svc.Evaluate(context.Background(), ids[0]); !errors.Is(err, ErrScoringFailed) {
		t.Fatalf("expected ErrScoringFailed, got %v", err)
	}
	evals, _ := repo.ListEvaluations(context.Background(), ids[0])
	if len(evals) != 0 {
		t.Errorf("expected no stored evaluations, got %d", len(evals))
	}
}

func TestEvaluate_OverallMatchesFormula(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 5)
	svc := NewService(repo, scoring.NewRandomScorer(nil, nil), Config{})
	ctx := context.Background()

	for _, id := range ids {
		if _, err := svc.Evaluate(ctx, id); err != nil {
			t.Fatalf("Evaluate(%d) error = %v", id, err)
		}
	}

	profiles, _ := repo.List(ctx)
	for _, p := range profiles {
		e := p.Evaluation
		want := ranking.CompositeScore(ranking.SubScores{
			Crisis: e.CrisisScore, Sustainability: e.SustainabilityScore, Motivation: e.MotivationScore,
		}, nil)
		if p.Ranking.OverallScore != want {
			t.Errorf("candidate %d: overall %v, want %v", p.ID, p.Ranking.OverallScore, want)
		}
		if e.Feedback != scoring.Feedback(want) {
			t.Errorf("candidate %d: feedback does not match overall score", p.ID)
		}
	}
}

func TestEvaluate_ReEvaluationReRanks(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 2)
	scorer := &scriptedScorer{results: []scoring.FixedScorer{uniform(90), uniform(80), uniform(60)}}
	svc := NewService(repo, scorer, Config{})
	ctx := context.Background()

	for _, id := range []int64{ids[0], ids[1], ids[0]} {
		if _, err := svc.Evaluate(ctx, id); err != nil {
			t.Fatalf("Evaluate(%d) error = %v", id, err)
		}
	}

	board, _ := svc.Leaderboard(ctx)
	if board[0].ID != ids[1] || board[1].ID != ids[0] {
		t.Errorf("expected re-evaluated candidate to drop to rank 2, got order %d,%d", board[0].ID, board[1].ID)
	}
	evals, _ := repo.ListEvaluations(ctx, ids[0])
	if len(evals) != 2 {
		t.Errorf("expected evaluation history of 2, got %d", len(evals))
	}
}

func TestLeaderboard_TruncatesToSize(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 15)
	svc := NewService(repo, scoring.NewRandomScorer(nil, nil), Config{})
	ctx := context.Background()

	for i, id := range ids {
		if _, err := svc.Evaluate(ctx, id); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		board, err := svc.Leaderboard(ctx)
		if err != nil {
			t.Fatalf("Leaderboard() error = %v", err)
		}
		if want := min(i+1, DefaultLeaderboardSize); len(board) != want {
			t.Fatalf("after %d evaluations leaderboard has %d entries, want %d", i+1, len(board), want)
		}
		for j := 1; j < len(board); j++ {
			if board[j].Ranking.OverallScore > board[j-1].Ranking.OverallScore {
				t.Fatalf("leaderboard not sorted descending at %d", j)
			}
		}
	}
}

func TestNewService_LeaderboardSizeBounds(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{size: 0, want: DefaultLeaderboardSize},
		{size: -4, want: DefaultLeaderboardSize},
		{size: 5, want: 5},
		{size: DefaultLeaderboardSize, want: DefaultLeaderboardSize},
		{size: 25, want: DefaultLeaderboardSize},
	}
	for _, tt := range tests {
		svc := NewService(candidate.NewInMemoryRepository(), uniform(70), Config{LeaderboardSize: tt.size})
		if got := svc.LeaderboardSize(); got != tt.want {
			t.Errorf("LeaderboardSize(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestSnapshot_CountsFullRankedSet(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 13)
	svc := NewService(repo, scoring.NewRandomScorer(nil, nil), Config{})
	ctx := context.Background()

	board, ranked, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(board) != 0 || ranked != 0 {
		t.Errorf("empty snapshot = %d entries, %d ranked", len(board), ranked)
	}

	// One candidate stays unevaluated.
	for _, id := range ids[:12] {
		if _, err := svc.Evaluate(ctx, id); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
	}

	board, ranked, err = svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(board) != DefaultLeaderboardSize || ranked != 12 {
		t.Errorf("snapshot = %d entries, %d ranked, want %d and 12", len(board), ranked, DefaultLeaderboardSize)
	}
}

func TestEvaluate_RecomputeFailureKeepsEvaluation(t *testing.T) {
	repo := &flakyRepo{InMemoryRepository: candidate.NewInMemoryRepository()}
	ids := seedCandidates(t, repo, 2)
	metrics := NewMetrics()
	svc := NewService(repo, &scriptedScorer{results: []scoring.FixedScorer{uniform(70), uniform(90)}}, Config{Metrics: metrics})
	ctx := context.Background()

	if _, err := svc.Evaluate(ctx, ids[0]); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	repo.setFail(true)
	eval, err := svc.Evaluate(ctx, ids[1])
	if !errors.Is(err, ErrRecomputeFailed) {
		t.Fatalf("expected ErrRecomputeFailed, got %v", err)
	}
	if eval == nil || eval.CandidateID != ids[1] {
		t.Fatalf("expected stored evaluation to be returned, got %+v", eval)
	}
	if !svc.Dirty() {
		t.Error("expected ranks to be flagged dirty")
	}
	if got := testutil.ToFloat64(metrics.ranksDirty); got != 1 {
		t.Errorf("dirty gauge = %v, want 1", got)
	}

	p, _ := repo.Get(ctx, ids[1])
	if p.Evaluation == nil || p.Ranking == nil || p.Ranking.Rank != 0 {
		t.Fatalf("expected stored evaluation with unassigned rank, got %+v", p)
	}

	if ran, err := svc.RepairIfDirty(ctx); !ran || err == nil {
		t.Errorf("repair while store still failing: ran=%v err=%v", ran, err)
	}

	repo.setFail(false)
	ran, err := svc.RepairIfDirty(ctx)
	if !ran || err != nil {
		t.Fatalf("RepairIfDirty() = %v, %v; want true, nil", ran, err)
	}
	if svc.Dirty() {
		t.Error("expected dirty flag cleared after repair")
	}

	board, _ := svc.Leaderboard(ctx)
	if board[0].ID != ids[1] || board[0].Ranking.Rank != 1 || board[1].Ranking.Rank != 2 {
		t.Errorf("unexpected ranks after repair: %+v, %+v", board[0].Ranking, board[1].Ranking)
	}

	if ran, _ := svc.RepairIfDirty(ctx); ran {
		t.Error("repair should be a no-op once ranks are clean")
	}
}

func TestEvaluate_PublishesRankings(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 2)
	pub := &recordingPublisher{}
	svc := NewService(repo, &scriptedScorer{results: []scoring.FixedScorer{uniform(85)}}, Config{Publisher: pub})

	if _, err := svc.Evaluate(context.Background(), ids[0]); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if _, err := svc.Recompute(context.Background()); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if len(pub.updates) != 2 {
		t.Fatalf("expected 2 published updates, got %d", len(pub.updates))
	}
	first := pub.updates[0]
	if first.Type != EventRankingsUpdated || first.Trigger != TriggerEvaluate || first.CandidateID != ids[0] {
		t.Errorf("unexpected first update %+v", first)
	}
	if first.RankedCount != 1 || len(first.Leaderboard) != 1 || first.Leaderboard[0].ID != ids[0] {
		t.Errorf("unexpected leaderboard in update %+v", first)
	}
	if pub.updates[1].Trigger != TriggerManual {
		t.Errorf("second trigger = %q, want %q", pub.updates[1].Trigger, TriggerManual)
	}
}

func TestEvaluate_ConcurrentCallsKeepRanksDense(t *testing.T) {
	repo := candidate.NewInMemoryRepository()
	ids := seedCandidates(t, repo, 12)
	svc := NewService(repo, scoring.NewRandomScorer(nil, nil), Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, err := svc.Evaluate(ctx, id); err != nil {
					t.Errorf("Evaluate(%d) error = %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	board, err := repo.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	entries := make([]ranking.Entry, len(board))
	for i, p := range board {
		entries[i] = ranking.Entry{CandidateID: p.ID, OverallScore: p.Ranking.OverallScore, Rank: p.Ranking.Rank}
	}
	if len(entries) != len(ids) {
		t.Fatalf("expected %d ranked candidates, got %d", len(ids), len(entries))
	}
	if err := ranking.VerifyDense(entries); err != nil {
		t.Errorf("ranks not dense: %v", err)
	}
}
