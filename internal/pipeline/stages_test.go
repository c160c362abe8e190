package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageRegistry_Complete(t *testing.T) {
	stages := []Stage{StageSearching, StageScoringAlternates, StageFiltering, StageFetchingArtwork, StageRanked, StageEmpty}
	for _, s := range stages {
		def, ok := StageRegistry[s]
		assert.True(t, ok, "stage %s should be registered", s)
		assert.Equal(t, s, def.Name)
		assert.NotEmpty(t, s.Description())
		for _, next := range def.Next {
			_, ok := StageRegistry[next]
			assert.True(t, ok, "stage %s references unknown stage %s", s, next)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageSearching, StageScoringAlternates, true},
		{StageSearching, StageEmpty, true},
		{StageScoringAlternates, StageFiltering, true},
		{StageFiltering, StageFetchingArtwork, true},
		{StageFiltering, StageRanked, true},
		{StageFiltering, StageEmpty, true},
		{StageFetchingArtwork, StageRanked, true},
		{StageSearching, StageRanked, false},
		{StageFetchingArtwork, StageEmpty, false},
		{StageRanked, StageSearching, false},
		{Stage("unknown"), StageRanked, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
