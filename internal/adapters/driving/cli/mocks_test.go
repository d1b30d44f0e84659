package cli

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// testMocks holds the mock services installed by setupTestServices.
type testMocks struct {
	settings    *mockSettingsService
	ingest      *mockIngestService
	sync        *mockSyncService
	retrieval   *mockRetrievalService
	chat        *mockChatService
	maintenance *mockMaintenanceService
	fetcher     *mockFetcher
}

// setupTestServices installs mock services and returns them with a cleanup
// function that restores the unwired state.
func setupTestServices() (*testMocks, func()) {
	defaults := domain.DefaultAppSettings()
	m := &testMocks{
		settings:    newMockSettingsService(),
		ingest:      &mockIngestService{},
		sync:        &mockSyncService{},
		retrieval:   &mockRetrievalService{},
		chat:        &mockChatService{},
		maintenance: &mockMaintenanceService{},
		fetcher:     &mockFetcher{},
	}

	settingsService = m.settings
	ingestService = m.ingest
	syncService = m.sync
	retrievalService = m.retrieval
	chatService = m.chat
	maintenanceService = m.maintenance
	documentFetcher = m.fetcher
	appSettings = &defaults
	servicesReady = true

	return m, func() {
		settingsService = nil
		ingestService = nil
		syncService = nil
		retrievalService = nil
		chatService = nil
		maintenanceService = nil
		documentFetcher = nil
		appSettings = nil
		servicesReady = false
	}
}

// execute runs the root command with args after resetting every flag,
// and returns combined stdout and stderr.
func execute(args []string, stdin string) (string, error) {
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores defaults on cmd and its subcommands. Cobra keeps
// flag values and Changed between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// ==================== Service Mocks ====================

type mockSettingsService struct {
	settings    domain.AppSettings
	values      map[string]string
	setErr      error
	validateErr error
	pingErr     error

	embedProvider domain.AIProvider
	embedModel    string
	embedKey      string
	llmProvider   domain.AIProvider
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   map[string]string{},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetValue(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	keys := []string{"search.top_k", "embedding.provider", "chunker.chunk_size"}
	sort.Strings(keys)
	return keys
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedProvider, m.embedModel, m.embedKey = provider, model, apiKey
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return m.setErr
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmProvider = provider
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return m.setErr
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error        { return m.pingErr }

type mockIngestService struct {
	result  *domain.IngestResult
	err     error
	deleted int

	lastReq    domain.IngestRequest
	lastRaw    *domain.RawDocument
	lastDelete string
}

func (m *mockIngestService) resultFor(name string) *domain.IngestResult {
	if m.result != nil {
		return m.result
	}
	return &domain.IngestResult{SourceName: name, ChunksCreated: 1}
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resultFor(req.SourceName), nil
}

func (m *mockIngestService) IngestBatch(_ context.Context, _ []domain.IngestRequest) (*domain.BatchResult, error) {
	return &domain.BatchResult{}, m.err
}

func (m *mockIngestService) IngestDocument(_ context.Context, raw *domain.RawDocument, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.lastRaw = raw
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	name := req.SourceName
	if name == "" {
		name = raw.Name
	}
	return m.resultFor(name), nil
}

func (m *mockIngestService) DeleteSource(_ context.Context, name string) (int, error) {
	m.lastDelete = name
	return m.deleted, m.err
}

type mockSyncService struct {
	batch   *domain.BatchResult
	err     error
	synced  bool
	watched bool
}

func (m *mockSyncService) Sync(_ context.Context, _ driven.Connector) (*domain.BatchResult, error) {
	m.synced = true
	if m.err != nil {
		return nil, m.err
	}
	if m.batch != nil {
		return m.batch, nil
	}
	return &domain.BatchResult{}, nil
}

func (m *mockSyncService) Watch(_ context.Context, _ driven.Connector) error {
	m.watched = true
	return m.err
}

type mockRetrievalService struct {
	items     []domain.ContextItem
	err       error
	lastQuery string
	lastOpts  domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) ([]domain.ContextItem, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.items, m.err
}

type mockChatService struct {
	answer   *domain.Answer
	err      error
	lastOpts domain.RetrieveOptions
}

func (m *mockChatService) Ask(_ context.Context, _ string, opts domain.RetrieveOptions) (*domain.Answer, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Text: "I don't know."}, nil
}

type mockMaintenanceService struct {
	stats     *domain.Stats
	health    *domain.HealthReport
	backfill  *domain.BackfillResult
	err       error
	lastLimit int
}

func (m *mockMaintenanceService) Backfill(_ context.Context, limit int) (*domain.BackfillResult, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if m.backfill != nil {
		return m.backfill, nil
	}
	return &domain.BackfillResult{}, nil
}

func (m *mockMaintenanceService) Stats(_ context.Context) (*domain.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &domain.Stats{}, nil
}

func (m *mockMaintenanceService) Health(_ context.Context) *domain.HealthReport {
	if m.health != nil {
		return m.health
	}
	return &domain.HealthReport{}
}

type mockFetcher struct {
	doc     *domain.RawDocument
	err     error
	lastURI string
}

func (m *mockFetcher) Fetch(_ context.Context, uri string) (*domain.RawDocument, error) {
	m.lastURI = uri
	if m.err != nil {
		return nil, m.err
	}
	if m.doc != nil {
		return m.doc, nil
	}
	return &domain.RawDocument{Name: "web_example_com", URI: uri, MIMEType: "text/html", Content: []byte("<p>hi</p>")}, nil
}
