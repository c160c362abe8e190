// Package main provides the filmfinder command line tool and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "filmfinder",
	Short: "Resolve imprecise film titles against the Swedish film catalog",
	Long: `filmfinder looks up a possibly misspelled or translated film title in the
Swedish film database, scores every hit against its original title, and returns
a short ranked list with cover artwork from IMDb.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./filmfinder.yaml or ~/.config/filmfinder/filmfinder.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
