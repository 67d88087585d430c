// Package scoring produces evaluation scores for candidates.
//
// A Scorer returns three 0-100 sub-scores. The overall score is always
// computed locally from the sub-scores with the ranking weights, and the
// feedback text is chosen by threshold on the overall score unless the
// scorer supplies its own.
package scoring

import (
	"context"
	"errors"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/ranking"
)

// Providers accepted by New.
const (
	ProviderRandom = "random"
	ProviderGemini = "gemini"
)

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown scorer provider")

// Result is the outcome of scoring one candidate.
type Result struct {
	CrisisScore         int     `json:"crisisScore"`
	SustainabilityScore int     `json:"sustainabilityScore"`
	MotivationScore     int     `json:"motivationScore"`
	OverallScore        float64 `json:"overallScore"`
	Feedback            string  `json:"feedback"`
}

// SubScores returns the three sub-scores in ranking form.
func (r Result) SubScores() ranking.SubScores {
	return ranking.SubScores{
		Crisis:         r.CrisisScore,
		Sustainability: r.SustainabilityScore,
		Motivation:     r.MotivationScore,
	}
}

// Scorer scores a candidate. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, c *candidate.Candidate) (Result, error)
}

// finish fills OverallScore from the sub-scores and, when feedback is empty,
// the threshold feedback template.
func finish(r Result, weights *ranking.Weights) Result {
	r.OverallScore = ranking.CompositeScore(r.SubScores(), weights)
	if r.Feedback == "" {
		r.Feedback = Feedback(r.OverallScore)
	}
	return r
}
