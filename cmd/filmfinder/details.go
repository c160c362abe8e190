package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/filmfinder/internal/observability"
)

var (
	detailsToken string
	detailsJSON  bool
)

var detailsCmd = &cobra.Command{
	Use:   "details <itemid>",
	Short: "Show a catalog film and whether a distribution format is listed",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

func init() {
	detailsCmd.Flags().StringVar(&detailsToken, "token", "", "Format token to look for (default from catalog.token, normally DCP)")
	detailsCmd.Flags().BoolVar(&detailsJSON, "json", false, "Print details as JSON")
	rootCmd.AddCommand(detailsCmd)
}

func runDetails(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}

	token := detailsToken
	if token == "" {
		token = a.cfg.Catalog.Token
	}

	details, err := a.catalog.Details(cmd.Context(), args[0], token)
	if err != nil {
		return fmt.Errorf("failed to load film details: %w", err)
	}

	out := cmd.OutOrStdout()
	if detailsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	}
	observability.NewPrinter(out).PrintFilmDetails(details)
	return nil
}
