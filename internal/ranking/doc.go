// Package ranking turns candidate evaluations into leaderboard positions.
//
// It owns two things: the weighted overall score computed from the three
// evaluation sub-scores, and the rank assignment that rewrites every ranked
// candidate's position after a scoring event.
//
// Basic Usage:
//
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//
//	overall := ranking.CompositeScore(ranking.SubScores{
//		Crisis:         88,
//		Sustainability: 72,
//		Motivation:     95,
//	}, weights)
//
//	ranked := ranking.AssignRanks(entries)
//
// Ordering:
//
// AssignRanks orders by overall score descending. Equal scores are ordered by
// candidate id ascending so that every store produces the same leaderboard.
// The whole ranked set is re-sorted on every call; at a few thousand rows this
// is cheaper than maintaining an order-statistics index and keeps the stored
// ranks trivially consistent.
package ranking
