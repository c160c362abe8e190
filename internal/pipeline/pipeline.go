// Package pipeline resolves an imprecise film title against the catalog,
// enriches the plausible candidates and returns a short ranked list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/filmfinder/internal/artwork"
	"github.com/jonathan/filmfinder/internal/enrich"
	"github.com/jonathan/filmfinder/internal/fetch"
	"github.com/jonathan/filmfinder/internal/ranking"
	"github.com/jonathan/filmfinder/internal/titles"
	"github.com/jonathan/filmfinder/internal/types"
)

// Defaults for Options.
const (
	DefaultTitleConcurrency   = 5
	DefaultArtworkConcurrency = 3
	DefaultItemTimeout        = 45 * time.Second
)

// Catalog is the primary film source.
type Catalog interface {
	Search(ctx context.Context, title string) ([]types.RawCandidate, error)
	FetchOriginalTitle(ctx context.Context, pageURL string) (string, error)
}

// Artwork is the secondary source used for cover art.
type Artwork interface {
	FindBestMatch(ctx context.Context, title string, year int) (string, error)
	ExtractArtwork(ctx context.Context, itemURL string) (string, error)
}

// Event reports a stage transition.
type Event struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ProgressCallback is called when a run changes stage.
type ProgressCallback func(event Event)

// Options configures a Resolver.
type Options struct {
	TitleConcurrency   int
	ArtworkConcurrency int
	// ItemTimeout bounds every individual enrichment call.
	ItemTimeout time.Duration
	MaxResults  int
	SkipArtwork bool
	Progress    ProgressCallback
}

// DefaultOptions returns the standard concurrency and size limits.
func DefaultOptions() Options {
	return Options{
		TitleConcurrency:   DefaultTitleConcurrency,
		ArtworkConcurrency: DefaultArtworkConcurrency,
		ItemTimeout:        DefaultItemTimeout,
		MaxResults:         ranking.DefaultMaxResults,
	}
}

// Resolver runs the resolution pipeline. It holds no per-query state and is
// safe for concurrent use.
type Resolver struct {
	catalog Catalog
	artwork Artwork
	opts    Options
	logger  *slog.Logger
}

// New creates a Resolver. Zero option values fall back to DefaultOptions. A
// nil artwork source disables artwork lookup.
func New(catalog Catalog, art Artwork, opts Options, logger *slog.Logger) *Resolver {
	defaults := DefaultOptions()
	if opts.TitleConcurrency <= 0 {
		opts.TitleConcurrency = defaults.TitleConcurrency
	}
	if opts.ArtworkConcurrency <= 0 {
		opts.ArtworkConcurrency = defaults.ArtworkConcurrency
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defaults.ItemTimeout
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaults.MaxResults
	}
	if art == nil {
		opts.SkipArtwork = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{catalog: catalog, artwork: art, opts: opts, logger: logger}
}

// Resolve parses raw title and year input and runs the pipeline.
func (r *Resolver) Resolve(ctx context.Context, title, year string) []types.Candidate {
	return r.Run(ctx, types.NewQuery(title, year))
}

// Run resolves q, reporting progress to Options.Progress.
func (r *Resolver) Run(ctx context.Context, q types.Query) []types.Candidate {
	return r.RunWithProgress(ctx, q, r.opts.Progress)
}

// RunWithProgress resolves q, reporting progress to progress instead of
// Options.Progress. It never fails: network and parse problems shrink the
// result or leave fields empty, and are logged.
func (r *Resolver) RunWithProgress(ctx context.Context, q types.Query, progress ProgressCallback) []types.Candidate {
	run := &run{stage: StageSearching, progress: progress, logger: r.logger}
	start := time.Now()

	run.emit(fmt.Sprintf("%q", q.Title), 0)

	raws := r.search(ctx, q)
	if len(raws) == 0 {
		run.advance(StageEmpty, "", 0)
		return []types.Candidate{}
	}

	run.advance(StageScoringAlternates, fmt.Sprintf("%d candidates", len(raws)), len(raws))
	candidates := r.scoreAlternates(ctx, q, raws)

	run.advance(StageFiltering, "", len(candidates))
	candidates = r.filter(candidates)
	if len(candidates) == 0 {
		run.advance(StageEmpty, "none passed the similarity threshold", 0)
		return []types.Candidate{}
	}

	if !r.opts.SkipArtwork {
		run.advance(StageFetchingArtwork, fmt.Sprintf("%d films", len(candidates)), len(candidates))
		r.attachArtwork(ctx, candidates)
	}

	ranked := ranking.Rank(candidates, q.HasYear(), r.opts.MaxResults)
	run.advance(StageRanked, fmt.Sprintf("%d films", len(ranked)), len(ranked))

	r.logger.Info("resolution finished",
		"title", q.Title,
		"year", q.Year,
		"results", len(ranked),
		"duration", time.Since(start),
	)
	return ranked
}

func (r *Resolver) search(ctx context.Context, q types.Query) []types.RawCandidate {
	if q.Title == "" {
		return nil
	}
	raws, err := r.catalog.Search(ctx, q.Title)
	if err != nil {
		r.logger.Error("catalog search failed", "title", q.Title, "error", err)
		return nil
	}
	return raws
}

// scoreAlternates fetches every candidate's original title and scores the
// candidate against the query using the better of both titles. The result
// keeps catalog order.
func (r *Resolver) scoreAlternates(ctx context.Context, q types.Query, raws []types.RawCandidate) []types.Candidate {
	results := enrich.RunBounded(ctx, raws,
		func(raw types.RawCandidate) string { return raw.ItemID },
		enrich.Options{
			Limit:    r.opts.TitleConcurrency,
			Timeout:  r.opts.ItemTimeout,
			Name:     string(StageScoringAlternates),
			Logger:   r.logger,
			Classify: failureKind,
		},
		func(ctx context.Context, raw types.RawCandidate) (string, error) {
			return r.catalog.FetchOriginalTitle(ctx, raw.URL)
		},
	)

	query := titles.Normalize(q.Title)
	candidates := make([]types.Candidate, 0, len(raws))
	for _, raw := range raws {
		c := types.NewCandidate(raw)
		if res := results[raw.ItemID]; res.OK {
			c.OriginalTitle = res.Value
		}
		c.Year = titles.ParseYear(raw.Title)
		c.YearDistance = ranking.YearDistance(q.Year, c.Year)
		c.Score = ranking.Score(query, titles.Normalize(c.Title), titles.Normalize(c.OriginalTitle))

		r.logger.Debug("candidate scored",
			"item_id", c.ItemID,
			"title", c.Title,
			"original_title", c.OriginalTitle,
			"year", c.Year,
			"score", c.Score,
		)
		candidates = append(candidates, c)
	}
	return candidates
}

func (r *Resolver) filter(candidates []types.Candidate) []types.Candidate {
	kept := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !ranking.Admit(c.Score) {
			r.logger.Debug("candidate below threshold", "item_id", c.ItemID, "title", c.Title, "score", c.Score)
			continue
		}
		kept = append(kept, c)
	}
	r.logger.Info("candidates filtered", "kept", len(kept), "dropped", len(candidates)-len(kept))
	return kept
}

// attachArtwork looks up a poster for every candidate in place. Candidates
// without artwork keep an empty PosterURL.
func (r *Resolver) attachArtwork(ctx context.Context, candidates []types.Candidate) {
	results := enrich.RunBounded(ctx, candidates,
		func(c types.Candidate) string { return c.ItemID },
		enrich.Options{
			Limit:    r.opts.ArtworkConcurrency,
			Timeout:  r.opts.ItemTimeout,
			Name:     string(StageFetchingArtwork),
			Logger:   r.logger,
			Classify: failureKind,
		},
		r.poster,
	)

	found := 0
	for i := range candidates {
		if res := results[candidates[i].ItemID]; res.OK && res.Value != "" {
			candidates[i].PosterURL = res.Value
			found++
		}
	}
	r.logger.Info("artwork attached", "candidates", len(candidates), "with_artwork", found)
}

// poster runs the two-hop lookup: title search, then title page scrape.
func (r *Resolver) poster(ctx context.Context, c types.Candidate) (string, error) {
	itemURL, err := r.artwork.FindBestMatch(ctx, c.SearchTitle(), c.Year)
	if err != nil {
		return "", notFoundAsSkip(err)
	}
	src, err := r.artwork.ExtractArtwork(ctx, itemURL)
	if err != nil {
		return "", notFoundAsSkip(err)
	}
	return src, nil
}

func notFoundAsSkip(err error) error {
	if errors.Is(err, artwork.ErrNoMatch) || errors.Is(err, artwork.ErrNoArtwork) {
		return fmt.Errorf("%w: %w", enrich.ErrSkip, err)
	}
	return err
}

// failureKind classifies a degraded enrichment call for logging.
func failureKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case fetch.IsNetwork(err):
		return string(fetch.KindNetwork)
	case fetch.IsParse(err):
		return string(fetch.KindParse)
	default:
		return "other"
	}
}

// run tracks the stage of one resolution.
type run struct {
	stage    Stage
	progress ProgressCallback
	logger   *slog.Logger
}

func (r *run) advance(to Stage, detail string, count int) {
	if !CanTransition(r.stage, to) {
		r.logger.Error("invalid stage transition", "from", r.stage, "to", to)
	}
	r.stage = to
	r.emit(detail, count)
}

// emit reports the current stage. The message is the stage description,
// followed by detail when given.
func (r *run) emit(detail string, count int) {
	message := r.stage.Description()
	if detail != "" {
		message += ": " + detail
	}
	r.logger.Debug("stage", "stage", r.stage, "message", message, "count", count)
	if r.progress != nil {
		r.progress(Event{Stage: r.stage, Message: message, Count: count})
	}
}
