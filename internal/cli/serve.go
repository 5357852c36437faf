package cli

import (
	"context"
	"fmt"

	"github.com/ckpayment/ckmodal/internal/server"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the ckmodal HTTP server.

The server provides:
  - ckpay.js SDK and public modal configs for embedding pages
  - Beacon endpoint for views and conversions
  - Dashboard and dashboard API for managing modals
  - Health check endpoint

Example:
  ckmodal serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Open database
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	srv, closeCache := newServer(cmd.Context(), s)
	defer closeCache()
	return srv.Start()
}

func newServer(ctx context.Context, s *store.SQLiteStore) (*server.Server, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	analytics, closeCache := newAnalyticsCache(ctx)

	srv := server.New(s, server.Options{
		Port:           cfg.Port,
		TokenFile:      cfg.TokenFile,
		Logger:         logrus.NewEntry(log),
		Cache:          analytics,
		PublicURL:      cfg.PublicURL,
		Embed:          snippets.EmbedOptions{SDKURL: cfg.SDKURL},
		FallbackTokens: cfg.DefaultTokens,
	})
	return srv, closeCache
}
