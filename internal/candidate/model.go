// Package candidate provides the candidate, evaluation and ranking models and
// the repositories that persist them.
package candidate

import (
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/talentboard/internal/validate"
)

var (
	// ErrCandidateNotFound is returned when a candidate id does not exist.
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrInvalidCandidate is returned when candidate input fails validation.
	ErrInvalidCandidate = errors.New("invalid candidate")
)

// Candidate is a person under evaluation for the role. Candidates are
// immutable after creation.
type Candidate struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	YearsExperience int       `json:"yearsExperience"`
	Skills          []string  `json:"skills"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Evaluation is one scored assessment of a candidate. Evaluations are insert-only;
// a candidate may accumulate several and the most recent one is current.
type Evaluation struct {
	ID                  int64     `json:"id"`
	CandidateID         int64     `json:"candidateId"`
	CrisisScore         int       `json:"crisisScore"`
	SustainabilityScore int       `json:"sustainabilityScore"`
	MotivationScore     int       `json:"motivationScore"`
	Feedback            string    `json:"feedback"`
	EvaluatedAt         time.Time `json:"evaluatedAt"`
}

// Ranking is the derived overall score and leaderboard position for a candidate.
// Rank is 0 between an evaluation being recorded and the next recompute.
type Ranking struct {
	CandidateID  int64     `json:"candidateId"`
	OverallScore float64   `json:"overallScore"`
	Rank         int       `json:"rank"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is a candidate joined with its ranking and current evaluation.
// Ranking and Evaluation are nil for candidates that have not been evaluated.
type Profile struct {
	Candidate
	Ranking    *Ranking    `json:"ranking,omitempty"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// NewCandidate validates and normalizes input for a new candidate.
// The returned candidate has no ID until it is stored.
func NewCandidate(name string, yearsExperience int, skills []string) (*Candidate, error) {
	cleanName, err := validate.CandidateName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: name: %w", ErrInvalidCandidate, err)
	}
	if err := validate.YearsExperience(yearsExperience); err != nil {
		return nil, fmt.Errorf("%w: yearsExperience: %w", ErrInvalidCandidate, err)
	}
	cleanSkills, err := validate.Skills(skills)
	if err != nil {
		return nil, fmt.Errorf("%w: skills: %w", ErrInvalidCandidate, err)
	}

	return &Candidate{
		Name:            cleanName,
		YearsExperience: yearsExperience,
		Skills:          cleanSkills,
	}, nil
}

func (c *Candidate) clone() *Candidate {
	out := *c
	out.Skills = append([]string(nil), c.Skills...)
	return &out
}
