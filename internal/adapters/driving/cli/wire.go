package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/ai"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/config/file"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/storage/memory"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/storage/sqlite"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/connectors/web"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/services"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers/docx"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers/html"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers/markdown"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers/pdf"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers/plaintext"
)

// app is the wired service graph for one process.
type app struct {
	settings    *services.SettingsService
	ingest      *services.IngestService
	sync        *services.SyncService
	retrieval   *services.RetrievalService
	chat        *services.ChatService
	maintenance *services.MaintenanceService
	fetcher     *web.Fetcher
	appSettings *domain.AppSettings
	close       func()
}

// resolveConfigDir returns dir, or ~/.assistant when dir is empty.
func resolveConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".assistant"), nil
}

// buildSettings loads .env files and opens config.toml with the
// environment overlay.
func buildSettings(dir string) (*services.SettingsService, error) {
	loaded, err := file.LoadEnv(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range loaded {
		logger.Debug("loaded environment from %s", p)
	}

	fileStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	configStore := file.NewEnvConfigStore(fileStore, nil)
	return services.NewSettingsService(configStore, ai.NewConfigValidator()), nil
}

// buildServices loads configuration and constructs every service.
// dir is the configuration directory; empty means ~/.assistant.
func buildServices(dir string) (*app, error) {
	logger.Section("Startup")

	dir, err := resolveConfigDir(dir)
	if err != nil {
		return nil, err
	}

	// 1. Configuration
	settingsSvc, err := buildSettings(dir)
	if err != nil {
		return nil, err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w (fix with 'assistant settings set')",
			filepath.Join(dir, "config.toml"), err)
	}
	applyLogLevel(settings.LogLevel)

	// 2. Chunk store
	store, err := openChunkStore(dir, settings.Store)
	if err != nil {
		return nil, err
	}

	// 3. AI providers
	aiResult := ai.Initialise(settings, false)

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		logger.Warn("prompts unavailable, using defaults: %v", err)
	}

	// 4. Services
	registry := normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		html.New(),
		docx.New(),
		pdf.New(),
	)

	ingestSvc, err := services.NewIngestService(store, aiResult.EmbeddingService, registry, services.IngestConfig{
		ChunkSize:   settings.Chunking.ChunkSize,
		Overlap:     settings.Chunking.Overlap,
		Concurrency: settings.Ingest.Concurrency,
		DeferFailed: settings.Ingest.DeferFailed,
	})
	if err != nil {
		aiResult.Close()
		_ = store.Close()
		return nil, err
	}

	searchSvc := services.NewSearchService(store, settings.Embedding.Dimensions)
	retrievalSvc := services.NewRetrievalService(aiResult.EmbeddingService, searchSvc)
	chatSvc := services.NewChatService(retrievalSvc, aiResult.LLMService, settings.Search.Threshold)
	if prompts != nil {
		chatSvc.SetPromptStore(prompts)
	}

	return &app{
		settings:    settingsSvc,
		ingest:      ingestSvc,
		sync:        services.NewSyncService(ingestSvc),
		retrieval:   retrievalSvc,
		chat:        chatSvc,
		maintenance: services.NewMaintenanceService(store, aiResult.EmbeddingService, aiResult.LLMService),
		fetcher:     web.NewFetcher(),
		appSettings: settings,
		close: func() {
			aiResult.Close()
			if err := store.Close(); err != nil {
				logger.Warn("close store: %v", err)
			}
		},
	}, nil
}

// openChunkStore opens the store selected by settings.
func openChunkStore(dir string, settings domain.StoreSettings) (driven.ChunkStore, error) {
	switch settings.Driver {
	case domain.StoreDriverMemory:
		logger.Debug("store: memory (chunks are lost on exit)")
		return memory.NewChunkStore(), nil
	default:
		dataDir := settings.Path
		if dataDir == "" {
			dataDir = filepath.Join(dir, "data")
		}
		store, err := sqlite.NewStore(filepath.Join(dataDir, sqlite.DefaultFileName))
		if err != nil {
			return nil, fmt.Errorf("open chunk store: %w", err)
		}
		logger.Debug("store: sqlite at %s", store.Path())
		return store, nil
	}
}

// applyLogLevel sets the configured level unless --verbose already
// switched on debug output.
func applyLogLevel(name string) {
	if logger.IsVerbose() {
		return
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		logger.Warn("%v, using %s", err, level)
	}
	logger.SetLevel(level)
}
