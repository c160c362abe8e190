package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/filmfinder/internal/server"
	"github.com/jonathan/filmfinder/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server that exposes the film search and detail endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from server.port, normally 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:      port,
		RateLimit: ratelimit.FromConfig(a.cfg.RateLimit),
	}, a.resolver, a.catalog, a.logger)

	return srv.Start()
}
