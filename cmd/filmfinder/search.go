package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/filmfinder/internal/observability"
	"github.com/jonathan/filmfinder/internal/pipeline"
	"github.com/jonathan/filmfinder/internal/types"
)

var (
	searchTitle     string
	searchYear      string
	searchJSON      bool
	searchNoArtwork bool
	searchProgress  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Resolve a film title and print the ranked matches",
	Long: `Search the catalog for a title, score every hit against its original title,
drop weak matches and print at most six films ordered by year proximity and score.`,
	Example: `  filmfinder search --title "Sagan om ringen" --year 2001
  filmfinder search --title Aftermath --json --no-artwork`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchTitle, "title", "t", "", "Film title to resolve (required)")
	searchCmd.Flags().StringVarP(&searchYear, "year", "y", "", "Release year; non-numeric values are ignored")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	searchCmd.Flags().BoolVar(&searchNoArtwork, "no-artwork", false, "Skip the IMDb artwork lookup")
	searchCmd.Flags().BoolVar(&searchProgress, "progress", false, "Print stage changes to stderr")
	_ = searchCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	req := types.SearchRequest{Title: searchTitle, Year: searchYear}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid search: %w", err)
	}

	a, err := newApp(searchNoArtwork)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress pipeline.ProgressCallback
	if searchProgress {
		progress = observability.NewPrinter(os.Stderr).PrintEvent
	}

	q := req.Query()
	results := a.resolver.RunWithProgress(ctx, q, progress)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("search interrupted: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(types.SearchResponse{Query: q, Count: len(results), Results: results})
	}

	observability.NewPrinter(out).PrintCandidates(q, results)
	return nil
}
