package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_TakesBestVariant(t *testing.T) {
	query := "the two towers"

	assert.Equal(t, 100.0, Score(query, "sagan om de tva tornen", "the lord of the rings the two towers"))
	assert.Equal(t, Score(query, "sagan om de tva tornen"), Score(query, "sagan om de tva tornen", ""))
	assert.Equal(t, 0.0, Score(query))
	assert.Equal(t, 0.0, Score(query, "", ""))
}

func TestAdmit(t *testing.T) {
	assert.True(t, Admit(65))
	assert.True(t, Admit(95))
	assert.False(t, Admit(64.9))
	assert.False(t, Admit(60))
}

func TestAccept(t *testing.T) {
	tests := []struct {
		name          string
		score         float64
		queryYear     int
		candidateYear int
		wantOK        bool
		wantComposite float64
	}{
		{name: "exact year good score", score: 75, queryYear: 2017, candidateYear: 2017, wantOK: true, wantComposite: 175},
		{name: "adjacent year good score", score: 80, queryYear: 2017, candidateYear: 2016, wantOK: true, wantComposite: 180},
		{name: "year match weak score", score: 74, queryYear: 2017, candidateYear: 2017, wantOK: false, wantComposite: 74},
		{name: "year off but strong score", score: 85, queryYear: 2017, candidateYear: 2010, wantOK: true, wantComposite: 85},
		{name: "year off moderate score", score: 84, queryYear: 2017, candidateYear: 2010, wantOK: false, wantComposite: 84},
		{name: "year two apart", score: 80, queryYear: 2017, candidateYear: 2019, wantOK: false, wantComposite: 80},
		{name: "no query year", score: 80, queryYear: 0, candidateYear: 2017, wantOK: true, wantComposite: 80},
		{name: "no candidate year", score: 79, queryYear: 2017, candidateYear: 0, wantOK: false, wantComposite: 79},
		{name: "no years strong", score: 100, wantOK: true, wantComposite: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, composite := Accept(tt.score, tt.queryYear, tt.candidateYear)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantComposite, composite)
		})
	}
}

func TestAccept_MonotonicInScore(t *testing.T) {
	yearPairs := [][2]int{{2017, 2017}, {2017, 2016}, {2017, 2012}, {0, 2017}, {2017, 0}, {0, 0}}

	for _, years := range yearPairs {
		accepted := false
		for score := 0.0; score <= 100; score++ {
			ok, _ := Accept(score, years[0], years[1])
			if accepted {
				assert.True(t, ok, "acceptance dropped at score %v for years %v", score, years)
			}
			accepted = accepted || ok
		}
		assert.True(t, accepted, "score 100 should always be accepted for years %v", years)
	}
}

func TestYearDistance(t *testing.T) {
	assert.Equal(t, 0.0, YearDistance(2017, 2017))
	assert.Equal(t, 3.0, YearDistance(2017, 2020))
	assert.Equal(t, 3.0, YearDistance(2020, 2017))
	assert.True(t, math.IsInf(YearDistance(0, 2017), 1))
	assert.True(t, math.IsInf(YearDistance(2017, 0), 1))
}
