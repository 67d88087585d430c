package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrRanksNotDense is returned by VerifyDense when ranks are not exactly 1..N.
var ErrRanksNotDense = errors.New("ranks are not a dense 1..N sequence")

// Entry is one ranked candidate as stored in the rankings table.
type Entry struct {
	CandidateID  int64
	OverallScore float64
	Rank         int
}

// Compare orders entries by overall score descending, then candidate id ascending.
func Compare(a, b Entry) int {
	if c := cmp.Compare(b.OverallScore, a.OverallScore); c != 0 {
		return c
	}
	return cmp.Compare(a.CandidateID, b.CandidateID)
}

// AssignRanks returns a copy of entries sorted by Compare with Rank set to
// each entry's 1-based position. The input slice is not modified.
func AssignRanks(entries []Entry) []Entry {
	ranked := slices.Clone(entries)
	slices.SortFunc(ranked, Compare)
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Changed returns the entries of ranked whose rank differs from the rank held
// in previous for the same candidate. Candidates absent from previous count as changed.
func Changed(previous, ranked []Entry) []Entry {
	old := make(map[int64]int, len(previous))
	for _, e := range previous {
		old[e.CandidateID] = e.Rank
	}

	var changed []Entry
	for _, e := range ranked {
		if r, ok := old[e.CandidateID]; !ok || r != e.Rank {
			changed = append(changed, e)
		}
	}
	return changed
}

// VerifyDense checks that the ranks form a permutation of 1..N and agree with
// descending overall score.
func VerifyDense(entries []Entry) error {
	n := len(entries)
	seen := make([]bool, n+1)
	for _, e := range entries {
		if e.Rank < 1 || e.Rank > n {
			return fmt.Errorf("%w: candidate %d has rank %d with %d ranked", ErrRanksNotDense, e.CandidateID, e.Rank, n)
		}
		if seen[e.Rank] {
			return fmt.Errorf("%w: rank %d assigned twice", ErrRanksNotDense, e.Rank)
		}
		seen[e.Rank] = true
	}

	byRank := slices.Clone(entries)
	slices.SortFunc(byRank, func(a, b Entry) int { return cmp.Compare(a.Rank, b.Rank) })
	for i := 1; i < len(byRank); i++ {
		if byRank[i].OverallScore > byRank[i-1].OverallScore {
			return fmt.Errorf("%w: rank %d (%.1f) scores above rank %d (%.1f)", ErrRanksNotDense,
				byRank[i].Rank, byRank[i].OverallScore, byRank[i-1].Rank, byRank[i-1].OverallScore)
		}
	}
	return nil
}
