package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAzure is an Azure OpenAI resource addressed by deployment name.
	AIProviderAzure AIProvider = "azure"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAzure:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAzure
}

// RequiresEndpoint returns true if this provider has no usable default base URL.
func (p AIProvider) RequiresEndpoint() bool {
	return p == AIProviderAzure
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAzure:
		return "Azure OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama host or Azure resource endpoint).
	BaseURL string

	// APIKey is the API key (for OpenAI and Azure).
	APIKey string

	// Deployment is the Azure deployment name. Falls back to Model.
	Deployment string

	// APIVersion is the Azure api-version query parameter.
	APIVersion string

	// Dimensions is the vector size. Zero means discover from the first response.
	Dimensions int

	// RatePerSecond caps provider calls. Zero disables limiting.
	RatePerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return providerConfigured(e.Provider, e.APIKey, e.BaseURL)
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (Ollama host or Azure resource endpoint).
	BaseURL string

	// APIKey is the API key (for OpenAI and Azure).
	APIKey string

	// Deployment is the Azure deployment name. Falls back to Model.
	Deployment string

	// APIVersion is the Azure api-version query parameter.
	APIVersion string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	return providerConfigured(l.Provider, l.APIKey, l.BaseURL)
}

func providerConfigured(p AIProvider, apiKey, baseURL string) bool {
	if !p.IsValid() {
		return false
	}
	if p.RequiresAPIKey() && apiKey == "" {
		return false
	}
	if p.RequiresEndpoint() && baseURL == "" {
		return false
	}
	return true
}

// ChunkingSettings holds the sliding-window chunker configuration.
type ChunkingSettings struct {
	// ChunkSize is the window length in characters.
	ChunkSize int

	// Overlap is how many characters consecutive chunks share.
	Overlap int
}

// Validate returns a ChunkingConfigError for unusable values.
func (c ChunkingSettings) Validate() error {
	return ValidateChunking(c.ChunkSize, c.Overlap)
}

// SearchSettings holds retrieval defaults.
type SearchSettings struct {
	// TopK is the default number of results.
	TopK int

	// Threshold is the default minimum similarity.
	Threshold float64

	// DedupeBySource keeps one chunk per source by default.
	DedupeBySource bool
}

// IngestSettings holds ingestion pipeline configuration.
type IngestSettings struct {
	// Concurrency bounds how many documents a batch ingests at once.
	Concurrency int

	// DeferFailed stores chunks whose embedding failed without a vector,
	// so a later back-fill can repair them.
	DeferFailed bool
}

// StoreDriver selects the chunk store implementation.
type StoreDriver string

// Available store drivers.
const (
	// StoreDriverSQLite is the durable on-disk store.
	StoreDriverSQLite StoreDriver = "sqlite"

	// StoreDriverMemory keeps chunks in process memory only.
	StoreDriverMemory StoreDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StoreDriver) IsValid() bool {
	return d == StoreDriverSQLite || d == StoreDriverMemory
}

// StoreSettings holds chunk store configuration.
type StoreSettings struct {
	// Driver selects the implementation.
	Driver StoreDriver

	// Path is the data directory for the sqlite driver.
	// Empty means the default data directory.
	Path string
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address (e.g., ":8080").
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Search    SearchSettings
	Ingest    IngestSettings
	Store     StoreSettings
	Server    ServerSettings

	// LogLevel is the minimum logger level name.
	LogLevel string
}

// Validate checks settings that would otherwise fail deep inside a service.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Search.TopK < 1 {
		return fmt.Errorf("%w: search.top_k must be at least 1", ErrInvalidInput)
	}
	if !(s.Search.Threshold >= -1 && s.Search.Threshold <= 1) {
		return fmt.Errorf("%w: search.threshold must be within [-1, 1]", ErrInvalidInput)
	}
	if s.Ingest.Concurrency < 1 {
		return fmt.Errorf("%w: ingest.concurrency must be at least 1", ErrInvalidInput)
	}
	if !s.Store.Driver.IsValid() {
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidInput, s.Store.Driver)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; they come from the config file or
// the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			APIVersion: DefaultAzureAPIVersion,
		},
		LLM: LLMSettings{
			APIVersion: DefaultAzureAPIVersion,
		},
		Chunking: ChunkingSettings{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Search: SearchSettings{
			TopK:      DefaultTopK,
			Threshold: DefaultSimilarityThreshold,
		},
		Ingest: IngestSettings{
			Concurrency: 4,
		},
		Store: StoreSettings{
			Driver: StoreDriverSQLite,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		LogLevel: "warn",
	}
}

// DefaultAzureAPIVersion is the Azure OpenAI REST api-version used when none is set.
const DefaultAzureAPIVersion = "2024-02-01"

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAzure,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAzure,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderAzure:  "text-embedding-ada-002",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
		AIProviderAzure:  "gpt-4o",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
