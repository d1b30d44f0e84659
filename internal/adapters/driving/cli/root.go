// Package cli implements the assistant command line on cobra.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// Services used by commands. They are wired once per process by
// setupServices, or replaced wholesale in tests.
var (
	settingsService    driving.SettingsService
	ingestService      driving.IngestService
	syncService        driving.SyncService
	retrievalService   driving.RetrievalService
	chatService        driving.ChatService
	maintenanceService driving.MaintenanceService
	documentFetcher    driven.DocumentFetcher
	appSettings        *domain.AppSettings

	servicesReady bool
	closeServices func()
)

// Command annotations that narrow service wiring.
const (
	// skipServices marks commands that run without any services.
	skipServices = "skip-services"

	// settingsOnly marks commands that need only the settings service,
	// so they keep working while the saved configuration is invalid.
	settingsOnly = "settings-only"
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Personal assistant document retrieval",
	Long: `assistant ingests documents into a local chunk store, embeds them,
and answers questions over them by semantic search.

Documents can come from text, files, directories or web pages. Search,
retrieval and search-and-chat are available from the command line, over
HTTP (assistant serve) and to AI tools over MCP (assistant mcp serve).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.assistant)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, so long-running commands shut down cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer shutdown()

	return rootCmd.ExecuteContext(ctx)
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if servicesReady || cmd.Annotations[skipServices] == "true" {
		return nil
	}

	if cmd.Annotations[settingsOnly] == "true" {
		dir, err := resolveConfigDir(configDir)
		if err != nil {
			return err
		}
		svc, err := buildSettings(dir)
		if err != nil {
			return err
		}
		settingsService = svc
		servicesReady = true
		return nil
	}

	app, err := buildServices(configDir)
	if err != nil {
		return err
	}

	settingsService = app.settings
	ingestService = app.ingest
	syncService = app.sync
	retrievalService = app.retrieval
	chatService = app.chat
	maintenanceService = app.maintenance
	documentFetcher = app.fetcher
	appSettings = app.appSettings
	closeServices = app.close
	servicesReady = true

	return nil
}

func shutdown() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
	servicesReady = false
}

// requireService returns a uniform error for an unwired service.
func requireService(ok bool, name string) error {
	if ok {
		return nil
	}
	return errors.New(name + " service not configured")
}

// searchDefaults returns the configured retrieval defaults.
func searchDefaults() domain.SearchSettings {
	if appSettings != nil {
		return appSettings.Search
	}
	return domain.DefaultAppSettings().Search
}
