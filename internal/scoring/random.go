package scoring

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/ranking"
)

// Bounds of each randomly generated sub-score, inclusive.
const (
	MinRandomScore = 60
	MaxRandomScore = 100
)

// RandomScorer is the mocked evaluator: each sub-score is a uniform integer in
// [MinRandomScore, MaxRandomScore], independent of the candidate.
type RandomScorer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights *ranking.Weights
}

// NewRandomScorer creates a RandomScorer. A nil src uses a randomly seeded
// PCG source; a nil weights uses ranking.DefaultWeights.
func NewRandomScorer(src rand.Source, weights *ranking.Weights) *RandomScorer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	return &RandomScorer{rng: rand.New(src), weights: weights}
}

// Score draws three sub-scores. It never fails.
func (s *RandomScorer) Score(ctx context.Context, _ *candidate.Candidate) (Result, error) {
	s.mu.Lock()
	r := Result{
		CrisisScore:         s.draw(),
		SustainabilityScore: s.draw(),
		MotivationScore:     s.draw(),
	}
	s.mu.Unlock()

	return finish(r, s.weights), nil
}

func (s *RandomScorer) draw() int {
	return MinRandomScore + s.rng.IntN(MaxRandomScore-MinRandomScore+1)
}

// FixedScorer returns the same sub-scores for every candidate.
// Useful where scores must be known in advance.
type FixedScorer struct {
	Crisis, Sustainability, Motivation int
	Weights                            *ranking.Weights
}

// Score returns the fixed sub-scores.
func (s FixedScorer) Score(ctx context.Context, _ *candidate.Candidate) (Result, error) {
	return finish(Result{
		CrisisScore:         s.Crisis,
		SustainabilityScore: s.Sustainability,
		MotivationScore:     s.Motivation,
	}, s.Weights), nil
}
