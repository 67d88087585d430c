package candidate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/talentboard/internal/ranking"
)

// testRepository runs the behaviour every Repository implementation must share.
// newRepo must return an empty repository.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c := mustCreate(t, repo, "Jordan Miller", 8, "Safety Compliance", "Lean Manufacturing", "Team Leadership")
		if c.ID == 0 {
			t.Fatal("expected ID to be assigned")
		}
		if c.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}

		got, err := repo.Get(ctx, c.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Name != "Jordan Miller" || got.YearsExperience != 8 {
			t.Errorf("unexpected candidate %+v", got.Candidate)
		}
		wantSkills := []string{"Safety Compliance", "Lean Manufacturing", "Team Leadership"}
		if len(got.Skills) != len(wantSkills) {
			t.Fatalf("skills = %v, want %v", got.Skills, wantSkills)
		}
		for i := range wantSkills {
			if got.Skills[i] != wantSkills[i] {
				t.Errorf("skill %d = %q, want %q", i, got.Skills[i], wantSkills[i])
			}
		}
		if got.Ranking != nil || got.Evaluation != nil {
			t.Error("unevaluated candidate should have no ranking or evaluation")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Get(context.Background(), 4242); !errors.Is(err, ErrCandidateNotFound) {
			t.Errorf("expected ErrCandidateNotFound, got %v", err)
		}
	})

	t.Run("list includes unevaluated candidates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := mustCreate(t, repo, "Casey Rivers", 5, "Waste Management")
		b := mustCreate(t, repo, "Morgan Lee", 12, "ISO 14001")
		mustRecord(t, repo, b.ID, 90, 80, 70, 81.0)

		profiles, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(profiles) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(profiles))
		}
		if profiles[0].ID != a.ID || profiles[1].ID != b.ID {
			t.Errorf("expected id order %d,%d got %d,%d", a.ID, b.ID, profiles[0].ID, profiles[1].ID)
		}
		if profiles[0].Ranking != nil || profiles[0].Evaluation != nil {
			t.Error("first candidate should be unevaluated")
		}
		if profiles[1].Ranking == nil || profiles[1].Evaluation == nil {
			t.Fatal("second candidate should carry ranking and evaluation")
		}
		if profiles[1].Ranking.OverallScore != 81.0 {
			t.Errorf("overall score = %v, want 81.0", profiles[1].Ranking.OverallScore)
		}

		n, err := repo.Count(ctx)
		if err != nil || n != 2 {
			t.Errorf("Count() = %d, %v; want 2, nil", n, err)
		}
	})

	t.Run("record evaluation for missing candidate writes nothing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		c := mustCreate(t, repo, "Taylor Brooks", 3, "Quality Control")

		_, err := repo.RecordEvaluation(ctx, &Evaluation{CandidateID: c.ID + 100, CrisisScore: 70,
			SustainabilityScore: 70, MotivationScore: 70, Feedback: "x"}, 70)
		if !errors.Is(err, ErrCandidateNotFound) {
			t.Fatalf("expected ErrCandidateNotFound, got %v", err)
		}

		board, err := repo.Leaderboard(ctx, 0)
		if err != nil {
			t.Fatalf("Leaderboard() error = %v", err)
		}
		if len(board) != 0 {
			t.Errorf("expected no rankings, got %d", len(board))
		}
		if _, err := repo.ListEvaluations(ctx, c.ID+100); !errors.Is(err, ErrCandidateNotFound) {
			t.Errorf("expected ErrCandidateNotFound from ListEvaluations, got %v", err)
		}
	})

	t.Run("new ranking starts at rank zero and re-evaluation keeps rank", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		c := mustCreate(t, repo, "Avery Stone", 9, "OSHA Standards")

		mustRecord(t, repo, c.ID, 60, 60, 60, 60.0)
		p, _ := repo.Get(ctx, c.ID)
		if p.Ranking == nil || p.Ranking.Rank != 0 {
			t.Fatalf("expected placeholder rank 0, got %+v", p.Ranking)
		}

		if _, err := repo.RewriteRanks(ctx, ranking.AssignRanks); err != nil {
			t.Fatalf("RewriteRanks() error = %v", err)
		}
		mustRecord(t, repo, c.ID, 100, 100, 100, 100.0)

		p, _ = repo.Get(ctx, c.ID)
		if p.Ranking.Rank != 1 {
			t.Errorf("expected rank 1 kept until recompute, got %d", p.Ranking.Rank)
		}
		if p.Ranking.OverallScore != 100.0 {
			t.Errorf("expected overall score updated to 100, got %v", p.Ranking.OverallScore)
		}
	})

	t.Run("most recent evaluation is current", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		c := mustCreate(t, repo, "Riley Chen", 4, "Data Analysis")

		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		older := &Evaluation{CandidateID: c.ID, CrisisScore: 61, SustainabilityScore: 62,
			MotivationScore: 63, Feedback: "older", EvaluatedAt: base}
		newer := &Evaluation{CandidateID: c.ID, CrisisScore: 91, SustainabilityScore: 92,
			MotivationScore: 93, Feedback: "newer", EvaluatedAt: base.Add(time.Hour)}

		// Insert the newer one first so id order and time order disagree.
		if _, err := repo.RecordEvaluation(ctx, newer, 91.9); err != nil {
			t.Fatalf("RecordEvaluation() error = %v", err)
		}
		if _, err := repo.RecordEvaluation(ctx, older, 61.9); err != nil {
			t.Fatalf("RecordEvaluation() error = %v", err)
		}

		p, err := repo.Get(ctx, c.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p.Evaluation.Feedback != "newer" {
			t.Errorf("expected newest evaluation, got %q", p.Evaluation.Feedback)
		}

		history, err := repo.ListEvaluations(ctx, c.ID)
		if err != nil {
			t.Fatalf("ListEvaluations() error = %v", err)
		}
		if len(history) != 2 || history[0].Feedback != "newer" || history[1].Feedback != "older" {
			t.Errorf("unexpected history order: %+v", history)
		}
	})

	t.Run("rewrite ranks is dense and leaderboard ordered", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if n, err := repo.CountRanked(ctx); err != nil || n != 0 {
			t.Fatalf("CountRanked() on empty store = %d, %v", n, err)
		}

		scores := []float64{72.5, 91.0, 72.5, 60.0, 88.8}
		ids := make([]int64, len(scores))
		for i, s := range scores {
			c := mustCreate(t, repo, "Candidate "+string(rune('A'+i)), i, "Process Optimization")
			ids[i] = c.ID
			mustRecord(t, repo, c.ID, 60, 60, 60, s)
		}
		mustCreate(t, repo, "Unranked Person", 1, "Equipment Maintenance")

		ranked, err := repo.RewriteRanks(ctx, ranking.AssignRanks)
		if err != nil {
			t.Fatalf("RewriteRanks() error = %v", err)
		}
		if err := ranking.VerifyDense(ranked); err != nil {
			t.Errorf("ranks not dense: %v", err)
		}

		board, err := repo.Leaderboard(ctx, 0)
		if err != nil {
			t.Fatalf("Leaderboard() error = %v", err)
		}
		wantOrder := []int64{ids[1], ids[4], ids[0], ids[2], ids[3]}
		if len(board) != len(wantOrder) {
			t.Fatalf("expected %d ranked candidates, got %d", len(wantOrder), len(board))
		}
		for i, p := range board {
			if p.ID != wantOrder[i] {
				t.Errorf("position %d: got candidate %d, want %d", i, p.ID, wantOrder[i])
			}
			if p.Ranking.Rank != i+1 {
				t.Errorf("position %d: stored rank %d", i, p.Ranking.Rank)
			}
		}

		top, err := repo.Leaderboard(ctx, 2)
		if err != nil {
			t.Fatalf("Leaderboard(2) error = %v", err)
		}
		if len(top) != 2 || top[0].ID != ids[1] || top[1].ID != ids[4] {
			t.Errorf("unexpected top 2: %+v", top)
		}

		// The unevaluated candidate is not counted.
		if n, err := repo.CountRanked(ctx); err != nil || n != len(scores) {
			t.Errorf("CountRanked() = %d, %v, want %d", n, err, len(scores))
		}
	})
}

func mustCreate(t *testing.T, repo Repository, name string, years int, skills ...string) *Candidate {
	t.Helper()
	c, err := NewCandidate(name, years, skills)
	if err != nil {
		t.Fatalf("NewCandidate(%q) error = %v", name, err)
	}
	created, err := repo.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return created
}

func mustRecord(t *testing.T, repo Repository, id int64, crisis, sustain, motivation int, overall float64) *Evaluation {
	t.Helper()
	e, err := repo.RecordEvaluation(context.Background(), &Evaluation{
		CandidateID:         id,
		CrisisScore:         crisis,
		SustainabilityScore: sustain,
		MotivationScore:     motivation,
		Feedback:            "recorded in test",
	}, overall)
	if err != nil {
		t.Fatalf("RecordEvaluation(%d) error = %v", id, err)
	}
	return e
}
