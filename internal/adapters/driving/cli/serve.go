package cli

import (
	"github.com/spf13/cobra"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driving/httpapi"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the JSON HTTP API until interrupted:

  POST   /search          {query, top_k, similarity_threshold, dedupe}
  POST   /ingest          {source_name, text} or {url}
  POST   /ask             {question, top_k, similarity_threshold}
  DELETE /sources/{name}
  GET    /stats
  GET    /health

The listen address defaults to server.addr from the configuration.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

// newHTTPServer builds the HTTP API from the wired services.
func newHTTPServer() (*httpapi.Server, error) {
	return httpapi.NewServer(httpapi.Services{
		Ingest:      ingestService,
		Retrieval:   retrievalService,
		Chat:        chatService,
		Maintenance: maintenanceService,
		Fetcher:     documentFetcher,
		Defaults:    searchDefaults(),
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := newHTTPServer()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = listenAddr()
	}

	cmd.Printf("Listening on %s. Press Ctrl+C to stop.\n", addr)
	return server.Run(cmd.Context(), addr)
}

// listenAddr returns the configured server address.
func listenAddr() string {
	if appSettings != nil && appSettings.Server.Addr != "" {
		return appSettings.Server.Addr
	}
	return domain.DefaultAppSettings().Server.Addr
}
