package candidate

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/onnwee/talentboard/internal/ranking"
)

// RerankFunc turns the current ranked set into the new ranked set.
// ranking.AssignRanks is the production implementation.
type RerankFunc func(current []ranking.Entry) []ranking.Entry

// Repository defines the data operations over candidates, evaluations and rankings.
type Repository interface {
	// List returns every candidate joined with its ranking and current evaluation,
	// ordered by candidate id.
	List(ctx context.Context) ([]*Profile, error)

	// Get returns one candidate joined with its ranking and current evaluation.
	// Returns ErrCandidateNotFound if the id does not exist.
	Get(ctx context.Context, id int64) (*Profile, error)

	// Create stores a new candidate and returns it with ID and CreatedAt set.
	Create(ctx context.Context, c *Candidate) (*Candidate, error)

	// Count returns the number of stored candidates.
	Count(ctx context.Context) (int, error)

	// CountRanked returns the number of candidates holding a ranking.
	CountRanked(ctx context.Context) (int, error)

	// RecordEvaluation stores a new evaluation and upserts the candidate's ranking
	// with overallScore as one unit. A new ranking row gets rank 0; an existing
	// row keeps its rank until the next RewriteRanks.
	// Returns ErrCandidateNotFound, writing nothing, if the candidate does not exist.
	RecordEvaluation(ctx context.Context, e *Evaluation, overallScore float64) (*Evaluation, error)

	// ListEvaluations returns a candidate's evaluations, newest first.
	// Returns ErrCandidateNotFound if the candidate does not exist.
	ListEvaluations(ctx context.Context, candidateID int64) ([]*Evaluation, error)

	// Leaderboard returns ranked candidates ordered by overall score descending,
	// candidate id ascending, truncated to limit. limit <= 0 returns all.
	Leaderboard(ctx context.Context, limit int) ([]*Profile, error)

	// RewriteRanks loads every ranking, passes them to rerank and persists the
	// ranks it returns. Implementations run this exclusively so that two
	// rewrites never interleave. Returns the new ranked set.
	RewriteRanks(ctx context.Context, rerank RerankFunc) ([]ranking.Entry, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for tests and when no database is configured.
type InMemoryRepository struct {
	mu          sync.RWMutex
	candidates  map[int64]*Candidate
	evaluations map[int64][]*Evaluation // by candidate, append order
	rankings    map[int64]*Ranking
	nextCandID  int64
	nextEvalID  int64
	now         func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		candidates:  make(map[int64]*Candidate),
		evaluations: make(map[int64][]*Evaluation),
		rankings:    make(map[int64]*Ranking),
		nextCandID:  1,
		nextEvalID:  1,
		now:         time.Now,
	}
}

// List returns every candidate with its ranking and current evaluation.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]*Profile, 0, len(r.candidates))
	for id := range r.candidates {
		profiles = append(profiles, r.profileLocked(id))
	}
	slices.SortFunc(profiles, func(a, b *Profile) int { return cmp.Compare(a.ID, b.ID) })
	return profiles, nil
}

// Get returns one candidate with its ranking and current evaluation.
func (r *InMemoryRepository) Get(ctx context.Context, id int64) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.candidates[id]; !ok {
		return nil, ErrCandidateNotFound
	}
	return r.profileLocked(id), nil
}

// Create stores a new candidate.
func (r *InMemoryRepository) Create(ctx context.Context, c *Candidate) (*Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := c.clone()
	stored.ID = r.nextCandID
	r.nextCandID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	r.candidates[stored.ID] = stored

	return stored.clone(), nil
}

// Count returns the number of stored candidates.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.candidates), nil
}

// CountRanked returns the number of candidates holding a ranking.
func (r *InMemoryRepository) CountRanked(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rankings), nil
}

// RecordEvaluation stores an evaluation and upserts the ranking.
func (r *InMemoryRepository) RecordEvaluation(ctx context.Context, e *Evaluation, overallScore float64) (*Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.candidates[e.CandidateID]; !ok {
		return nil, ErrCandidateNotFound
	}

	now := r.now().UTC()
	stored := *e
	stored.ID = r.nextEvalID
	r.nextEvalID++
	if stored.EvaluatedAt.IsZero() {
		stored.EvaluatedAt = now
	}
	r.evaluations[e.CandidateID] = append(r.evaluations[e.CandidateID], &stored)

	if existing, ok := r.rankings[e.CandidateID]; ok {
		existing.OverallScore = overallScore
		existing.UpdatedAt = now
	} else {
		r.rankings[e.CandidateID] = &Ranking{
			CandidateID:  e.CandidateID,
			OverallScore: overallScore,
			UpdatedAt:    now,
		}
	}

	out := stored
	return &out, nil
}

// ListEvaluations returns a candidate's evaluations, newest first.
func (r *InMemoryRepository) ListEvaluations(ctx context.Context, candidateID int64) ([]*Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.candidates[candidateID]; !ok {
		return nil, ErrCandidateNotFound
	}

	evals := make([]*Evaluation, 0, len(r.evaluations[candidateID]))
	for _, e := range r.evaluations[candidateID] {
		cp := *e
		evals = append(evals, &cp)
	}
	slices.SortFunc(evals, newestFirst)
	return evals, nil
}

// Leaderboard returns ranked candidates ordered by overall score descending.
func (r *InMemoryRepository) Leaderboard(ctx context.Context, limit int) ([]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]ranking.Entry, 0, len(r.rankings))
	for _, rk := range r.rankings {
		entries = append(entries, ranking.Entry{CandidateID: rk.CandidateID, OverallScore: rk.OverallScore})
	}
	slices.SortFunc(entries, ranking.Compare)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	profiles := make([]*Profile, 0, len(entries))
	for _, e := range entries {
		profiles = append(profiles, r.profileLocked(e.CandidateID))
	}
	return profiles, nil
}

// RewriteRanks re-ranks every ranked candidate under the write lock.
func (r *InMemoryRepository) RewriteRanks(ctx context.Context, rerank RerankFunc) ([]ranking.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current := make([]ranking.Entry, 0, len(r.rankings))
	for _, rk := range r.rankings {
		current = append(current, ranking.Entry{
			CandidateID:  rk.CandidateID,
			OverallScore: rk.OverallScore,
			Rank:         rk.Rank,
		})
	}

	ranked := rerank(current)
	now := r.now().UTC()
	for _, e := range ranking.Changed(current, ranked) {
		if rk, ok := r.rankings[e.CandidateID]; ok {
			rk.Rank = e.Rank
			rk.UpdatedAt = now
		}
	}

	return ranked, nil
}

// profileLocked builds a detached Profile. Caller must hold r.mu.
func (r *InMemoryRepository) profileLocked(id int64) *Profile {
	p := &Profile{Candidate: *r.candidates[id].clone()}
	if rk, ok := r.rankings[id]; ok {
		cp := *rk
		p.Ranking = &cp
	}
	if evals := r.evaluations[id]; len(evals) > 0 {
		latest := slices.MinFunc(evals, newestFirst)
		cp := *latest
		p.Evaluation = &cp
	}
	return p
}

// newestFirst orders evaluations by evaluated_at descending, then id descending.
func newestFirst(a, b *Evaluation) int {
	if c := b.EvaluatedAt.Compare(a.EvaluatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
