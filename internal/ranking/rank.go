package ranking

import (
	"sort"

	"github.com/jonathan/filmfinder/internal/types"
)

// DefaultMaxResults bounds the ranked output.
const DefaultMaxResults = 6

// Rank orders candidates and truncates them to limit (DefaultMaxResults when
// limit <= 0). With a query year, exact year matches come first, then
// ascending year distance, then descending score. Without one, candidates are
// ordered by descending score. Ties keep their input order. The input slice
// is not modified.
func Rank(candidates []types.Candidate, hasYear bool, limit int) []types.Candidate {
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	ranked := make([]types.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if hasYear {
			aExact, bExact := a.YearDistance == 0, b.YearDistance == 0
			if aExact != bExact {
				return aExact
			}
			if a.YearDistance != b.YearDistance {
				return a.YearDistance < b.YearDistance
			}
		}
		return a.Score > b.Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
