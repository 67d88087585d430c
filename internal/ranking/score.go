package ranking

import "math"

// SubScores holds the three 0-100 evaluation sub-scores.
type SubScores struct {
	Crisis         int
	Sustainability int
	Motivation     int
}

// CompositeScore computes the overall score rounded to one decimal place.
// A nil weights value uses DefaultWeights.
func CompositeScore(s SubScores, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}

	raw := float64(s.Crisis)*weights.Crisis +
		float64(s.Sustainability)*weights.Sustainability +
		float64(s.Motivation)*weights.Motivation

	return Round1(raw)
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
