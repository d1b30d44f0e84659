package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedDeployment  = "embedding.deployment"
	KeyEmbedAPIVersion  = "embedding.api_version"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyEmbedRate        = "embedding.rate_per_second"
	KeyLLMProvider      = "llm.provider"
	KeyLLMModel         = "llm.model"
	KeyLLMBaseURL       = "llm.base_url"
	KeyLLMAPIKey        = "llm.api_key"
	KeyLLMDeployment    = "llm.deployment"
	KeyLLMAPIVersion    = "llm.api_version"
	KeyChunkSize        = "chunker.chunk_size"
	KeyChunkOverlap     = "chunker.overlap"
	KeySearchTopK       = "search.top_k"
	KeySearchThreshold  = "search.threshold"
	KeySearchDedupe     = "search.dedupe"
	KeyIngestConcurrent = "ingest.concurrency"
	KeyIngestDefer      = "ingest.defer_failed"
	KeyStoreDriver      = "store.driver"
	KeyStorePath        = "store.path"
	KeyServerAddr       = "server.addr"
	KeyLogLevel         = "log.level"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// settingKeys lists every key SetValue accepts with its value type and an
// optional check run on the parsed value.
var settingKeys = map[string]struct {
	kind  valueKind
	check func(any) error
}{
	KeyEmbedProvider:    {kindString, checkProvider},
	KeyEmbedModel:       {kindString, nil},
	KeyEmbedBaseURL:     {kindString, nil},
	KeyEmbedAPIKey:      {kindString, nil},
	KeyEmbedDeployment:  {kindString, nil},
	KeyEmbedAPIVersion:  {kindString, nil},
	KeyEmbedDimensions:  {kindInt, checkMinInt(0)},
	KeyEmbedRate:        {kindFloat, checkMinFloat(0)},
	KeyLLMProvider:      {kindString, checkProvider},
	KeyLLMModel:         {kindString, nil},
	KeyLLMBaseURL:       {kindString, nil},
	KeyLLMAPIKey:        {kindString, nil},
	KeyLLMDeployment:    {kindString, nil},
	KeyLLMAPIVersion:    {kindString, nil},
	KeyChunkSize:        {kindInt, checkMinInt(1)},
	KeyChunkOverlap:     {kindInt, checkMinInt(0)},
	KeySearchTopK:       {kindInt, checkMinInt(1)},
	KeySearchThreshold:  {kindFloat, checkThreshold},
	KeySearchDedupe:     {kindBool, nil},
	KeyIngestConcurrent: {kindInt, checkMinInt(1)},
	KeyIngestDefer:      {kindBool, nil},
	KeyStoreDriver:      {kindString, checkDriver},
	KeyStorePath:        {kindString, nil},
	KeyServerAddr:       {kindString, nil},
	KeyLogLevel:         {kindString, checkLogLevel},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, falling back to defaults
// for unset or invalid values.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:      s.getProvider(KeyEmbedProvider, d.Embedding.Provider),
			Model:         s.getString(KeyEmbedModel, d.Embedding.Model),
			BaseURL:       s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:        s.configStore.GetString(KeyEmbedAPIKey),
			Deployment:    s.configStore.GetString(KeyEmbedDeployment),
			APIVersion:    s.getString(KeyEmbedAPIVersion, d.Embedding.APIVersion),
			Dimensions:    s.getInt(KeyEmbedDimensions, d.Embedding.Dimensions),
			RatePerSecond: s.getFloat(KeyEmbedRate, d.Embedding.RatePerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:   s.getProvider(KeyLLMProvider, d.LLM.Provider),
			Model:      s.getString(KeyLLMModel, d.LLM.Model),
			BaseURL:    s.configStore.GetString(KeyLLMBaseURL),
			APIKey:     s.configStore.GetString(KeyLLMAPIKey),
			Deployment: s.configStore.GetString(KeyLLMDeployment),
			APIVersion: s.getString(KeyLLMAPIVersion, d.LLM.APIVersion),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(KeyChunkSize, d.Chunking.ChunkSize),
			Overlap:   s.getInt(KeyChunkOverlap, d.Chunking.Overlap),
		},
		Search: domain.SearchSettings{
			TopK:           s.getInt(KeySearchTopK, d.Search.TopK),
			Threshold:      s.getFloat(KeySearchThreshold, d.Search.Threshold),
			DedupeBySource: s.getBool(KeySearchDedupe, d.Search.DedupeBySource),
		},
		Ingest: domain.IngestSettings{
			Concurrency: s.getInt(KeyIngestConcurrent, d.Ingest.Concurrency),
			DeferFailed: s.getBool(KeyIngestDefer, d.Ingest.DeferFailed),
		},
		Store: domain.StoreSettings{
			Driver: s.getDriver(d.Store.Driver),
			Path:   s.configStore.GetString(KeyStorePath),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(KeyServerAddr, d.Server.Addr),
		},
		LogLevel: s.getString(KeyLogLevel, d.LogLevel),
	}

	// Explicit zero overlap is valid and must not fall back to the default.
	if _, ok := s.configStore.Get(KeyChunkOverlap); ok {
		settings.Chunking.Overlap = s.configStore.GetInt(KeyChunkOverlap)
	}
	if _, ok := s.configStore.Get(KeySearchThreshold); ok {
		settings.Search.Threshold = s.configStore.GetFloat(KeySearchThreshold)
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key string
		val any
	}{
		{KeyEmbedProvider, settings.Embedding.Provider.String()},
		{KeyEmbedModel, settings.Embedding.Model},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL},
		{KeyEmbedDeployment, settings.Embedding.Deployment},
		{KeyEmbedAPIVersion, settings.Embedding.APIVersion},
		{KeyEmbedDimensions, settings.Embedding.Dimensions},
		{KeyEmbedRate, settings.Embedding.RatePerSecond},
		{KeyLLMProvider, settings.LLM.Provider.String()},
		{KeyLLMModel, settings.LLM.Model},
		{KeyLLMBaseURL, settings.LLM.BaseURL},
		{KeyLLMDeployment, settings.LLM.Deployment},
		{KeyLLMAPIVersion, settings.LLM.APIVersion},
		{KeyChunkSize, settings.Chunking.ChunkSize},
		{KeyChunkOverlap, settings.Chunking.Overlap},
		{KeySearchTopK, settings.Search.TopK},
		{KeySearchThreshold, settings.Search.Threshold},
		{KeySearchDedupe, settings.Search.DedupeBySource},
		{KeyIngestConcurrent, settings.Ingest.Concurrency},
		{KeyIngestDefer, settings.Ingest.DeferFailed},
		{KeyStoreDriver, string(settings.Store.Driver)},
		{KeyStorePath, settings.Store.Path},
		{KeyServerAddr, settings.Server.Addr},
		{KeyLogLevel, settings.LogLevel},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so an environment-provided key
	// is never copied into the config file as an empty string.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(KeyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", KeyEmbedAPIKey, err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(KeyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", KeyLLMAPIKey, err)
		}
	}

	return nil
}

// Keys returns every settings key SetValue accepts, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue parses value according to key's type and persists it.
func (s *SettingsService) SetValue(key, value string) error {
	setting, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(setting.kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if setting.check != nil {
		if err := setting.check(parsed); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
		}
	}

	if key == KeyChunkSize || key == KeyChunkOverlap {
		current, err := s.Get()
		if err != nil {
			return err
		}
		size, overlap := current.Chunking.ChunkSize, current.Chunking.Overlap
		if key == KeyChunkSize {
			size = parsed.(int)
		} else {
			overlap = parsed.(int)
		}
		if err := domain.ValidateChunking(size, overlap); err != nil {
			return err
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	logger.Debug("settings: %s updated", key)
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	} else {
		settings.Embedding.Dimensions = 0
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getDriver(defaultVal domain.StoreDriver) domain.StoreDriver {
	driver := domain.StoreDriver(s.configStore.GetString(KeyStoreDriver))
	if !driver.IsValid() {
		return defaultVal
	}
	return driver
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

func baseURLFor(provider domain.AIProvider, current string) string {
	switch {
	case provider.IsLocal() && current == "":
		return "http://localhost:11434"
	case provider.RequiresEndpoint():
		return current
	case provider.IsLocal():
		return current
	default:
		// Public cloud endpoints need no custom base URL
		return ""
	}
}

func parseValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

func checkProvider(v any) error {
	if p := domain.AIProvider(v.(string)); !p.IsValid() {
		return fmt.Errorf("unknown provider %q", p)
	}
	return nil
}

func checkDriver(v any) error {
	if d := domain.StoreDriver(v.(string)); !d.IsValid() {
		return fmt.Errorf("unknown store driver %q", d)
	}
	return nil
}

func checkLogLevel(v any) error {
	_, err := logger.ParseLevel(v.(string))
	return err
}

func checkThreshold(v any) error {
	if f := v.(float64); !(f >= -1 && f <= 1) {
		return fmt.Errorf("must be within [-1, 1]")
	}
	return nil
}

func checkMinInt(minVal int) func(any) error {
	return func(v any) error {
		if v.(int) < minVal {
			return fmt.Errorf("must be at least %d", minVal)
		}
		return nil
	}
}

func checkMinFloat(minVal float64) func(any) error {
	return func(v any) error {
		if v.(float64) < minVal {
			return fmt.Errorf("must be at least %g", minVal)
		}
		return nil
	}
}
