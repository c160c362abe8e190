package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jonathan/filmfinder/internal/artwork"
	"github.com/jonathan/filmfinder/internal/catalog"
	"github.com/jonathan/filmfinder/internal/config"
	"github.com/jonathan/filmfinder/internal/fetch"
	"github.com/jonathan/filmfinder/internal/logging"
	"github.com/jonathan/filmfinder/internal/pipeline"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *catalog.Client
	resolver *pipeline.Resolver
}

// newApp loads configuration and builds the clients. Artwork lookup is left
// out when disabled in config or when skipArtwork is set.
func newApp(skipArtwork bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Writer: os.Stderr,
		Debug:  debug || cfg.Log.Debug || cfg.Server.Debug,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}

	fetcher := fetch.NewClient(&fetch.Options{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	})
	films := catalog.New(fetcher, cfg.Catalog.BaseURL, logger)

	// a typed nil would defeat the resolver's nil check
	var art pipeline.Artwork
	if cfg.Artwork.Enabled && !skipArtwork {
		art = artwork.New(fetcher, artwork.Options{
			BaseURL:    cfg.Artwork.BaseURL,
			PageDelay:  cfg.Artwork.PageDelay,
			UseBrowser: cfg.Artwork.UseBrowser,
		}, logger)
	}

	resolver := pipeline.New(films, art, pipeline.Options{
		TitleConcurrency:   cfg.Pipeline.TitleConcurrency,
		ArtworkConcurrency: cfg.Pipeline.ArtworkConcurrency,
		ItemTimeout:        cfg.Pipeline.ItemTimeout,
		MaxResults:         cfg.Pipeline.MaxResults,
	}, logger)

	return &app{cfg: cfg, logger: logger, catalog: films, resolver: resolver}, nil
}
