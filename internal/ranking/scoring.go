// Package ranking scores catalog candidates against a query title and orders
// the survivors.
package ranking

import "math"

// Thresholds on the 0-100 similarity scale. The values are empirical and kept
// as-is for behavioural compatibility.
const (
	// AdmissionThreshold is the minimum plain score for a catalog candidate
	// to be enriched further.
	AdmissionThreshold = 65.0

	// yearMatchThreshold applies when the years are within yearTolerance.
	yearMatchThreshold = 75.0
	// strongMatchThreshold admits a match regardless of year.
	strongMatchThreshold = 85.0
	// noYearThreshold applies when either year is unknown.
	noYearThreshold = 80.0

	yearTolerance = 1
	// yearMatchBonus only breaks ties in favour of year-consistent matches;
	// it is never stored as part of a score.
	yearMatchBonus = 100.0
)

// Score returns the best TokenSetRatio between the normalized query and any
// of the normalized candidate variants. Empty variants are ignored.
func Score(query string, variants ...string) float64 {
	best := 0.0
	for _, v := range variants {
		if v == "" {
			continue
		}
		best = max(best, TokenSetRatio(query, v))
	}
	return best
}

// Admit reports whether a plain score passes the admission threshold.
func Admit(score float64) bool {
	return score >= AdmissionThreshold
}

// Accept applies the year-aware acceptance rule used to disambiguate
// secondary-source results. It returns whether the candidate is accepted and
// its composite ranking value. Years of 0 are unknown.
func Accept(score float64, queryYear, candidateYear int) (bool, float64) {
	if queryYear > 0 && candidateYear > 0 {
		if absInt(queryYear-candidateYear) <= yearTolerance && score >= yearMatchThreshold {
			return true, score + yearMatchBonus
		}
		if score >= strongMatchThreshold {
			return true, score
		}
		return false, score
	}
	return score >= noYearThreshold, score
}

// YearDistance returns |queryYear - candidateYear|, or +Inf when either is unknown.
func YearDistance(queryYear, candidateYear int) float64 {
	if queryYear <= 0 || candidateYear <= 0 {
		return math.Inf(1)
	}
	return float64(absInt(queryYear - candidateYear))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
