package pipeline

// Stage is a state of a single resolution run.
type Stage string

const (
	StageSearching         Stage = "searching"
	StageScoringAlternates Stage = "scoring_alternates"
	StageFiltering         Stage = "filtering"
	StageFetchingArtwork   Stage = "fetching_artwork"
	StageRanked            Stage = "ranked"
	StageEmpty             Stage = "empty"
)

// StageDefinition describes a stage and the stages it may hand over to.
type StageDefinition struct {
	Name        Stage
	Description string
	Next        []Stage
}

// StageRegistry holds all stage definitions. A run starts in StageSearching
// and ends in StageRanked or StageEmpty.
var StageRegistry = map[Stage]StageDefinition{
	StageSearching: {
		Name:        StageSearching,
		Description: "Searching the catalog",
		Next:        []Stage{StageScoringAlternates, StageEmpty},
	},
	StageScoringAlternates: {
		Name:        StageScoringAlternates,
		Description: "Fetching original titles and scoring candidates",
		Next:        []Stage{StageFiltering},
	},
	StageFiltering: {
		Name:        StageFiltering,
		Description: "Dropping weak matches",
		Next:        []Stage{StageFetchingArtwork, StageRanked, StageEmpty},
	},
	StageFetchingArtwork: {
		Name:        StageFetchingArtwork,
		Description: "Looking up cover artwork",
		Next:        []Stage{StageRanked},
	},
	StageRanked: {
		Name:        StageRanked,
		Description: "Ranked results ready",
	},
	StageEmpty: {
		Name:        StageEmpty,
		Description: "No matching films",
	},
}

// Description returns the human readable stage label.
func (s Stage) Description() string {
	return StageRegistry[s].Description
}

// CanTransition reports whether a run may move from one stage to another.
func CanTransition(from, to Stage) bool {
	def, ok := StageRegistry[from]
	if !ok {
		return false
	}
	for _, next := range def.Next {
		if next == to {
			return true
		}
	}
	return false
}
