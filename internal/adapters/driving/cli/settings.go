package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/services"
)

// Provider flags shared by 'settings embedding' and 'settings llm'.
var (
	providerName       string
	providerModel      string
	providerAPIKey     string
	providerBaseURL    string
	providerDeployment string
	providerSkipCheck  bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, chunking, search defaults and storage.

Settings live in ~/.assistant/config.toml. Values missing there are read
from the environment (OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, ...), which
may also be provided in a .env file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set one setting by key. Run 'assistant settings keys' for the list.

Examples:
  assistant settings set chunker.chunk_size 800
  assistant settings set search.threshold 0.4
  assistant settings set store.driver memory`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate settings and check provider connectivity",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for ingestion and search.

Without --provider the command asks interactively.

Examples:
  assistant settings embedding --provider ollama --model nomic-embed-text
  assistant settings embedding --provider azure --base-url https://x.openai.azure.com \
      --deployment text-embedding-ada-002 --api-key ...`,
	Args: cobra.NoArgs,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Configure the language model used by 'assistant ask'.

Without --provider the command asks interactively.`,
	Args: cobra.NoArgs,
	RunE: runSettingsLLM,
}

func init() {
	for _, c := range []*cobra.Command{settingsEmbeddingCmd, settingsLLMCmd} {
		c.Flags().StringVar(&providerName, "provider", "", "provider: ollama, openai or azure")
		c.Flags().StringVar(&providerModel, "model", "", "model name (default per provider)")
		c.Flags().StringVar(&providerAPIKey, "api-key", "", "API key (openai, azure)")
		c.Flags().StringVar(&providerBaseURL, "base-url", "", "Ollama host or Azure endpoint")
		c.Flags().StringVar(&providerDeployment, "deployment", "", "Azure deployment name")
		c.Flags().BoolVar(&providerSkipCheck, "skip-check", false, "save without contacting the provider")
	}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)

	settingsCmd.Annotations = map[string]string{settingsOnly: "true"}
	for _, c := range settingsCmd.Commands() {
		c.Annotations = map[string]string{settingsOnly: "true"}
	}
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	printProviderDetails(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL,
		settings.Embedding.APIKey, settings.Embedding.Deployment)
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	} else {
		cmd.Printf("  Dimensions: (discovered on first use)\n")
	}
	if settings.Embedding.RatePerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f/s\n", settings.Embedding.RatePerSecond)
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	printProviderDetails(cmd, settings.LLM.Provider, settings.LLM.BaseURL,
		settings.LLM.APIKey, settings.LLM.Deployment)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d\n", settings.Chunking.ChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Top K: %d\n", settings.Search.TopK)
	cmd.Printf("  Threshold: %.2f\n", settings.Search.Threshold)
	cmd.Printf("  Dedupe by source: %s\n", yesNo(settings.Search.DedupeBySource))
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Concurrency: %d\n", settings.Ingest.Concurrency)
	cmd.Printf("  Defer failed embeddings: %s\n", yesNo(settings.Ingest.DeferFailed))
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Driver: %s\n", settings.Store.Driver)
	if settings.Store.Path != "" {
		cmd.Printf("  Path: %s\n", settings.Store.Path)
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Log level: %s\n", settings.LogLevel)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'assistant settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProviderDetails(cmd *cobra.Command, p domain.AIProvider, baseURL, apiKey, deployment string) {
	if p.IsLocal() || p.RequiresEndpoint() {
		cmd.Printf("  Base URL: %s\n", orNotSet(baseURL))
	}
	if p == domain.AIProviderAzure && deployment != "" {
		cmd.Printf("  Deployment: %s\n", deployment)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		return err
	}

	shown := value
	if strings.HasSuffix(key, "api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("settings are invalid: %w", err)
	}
	cmd.Println("Settings: OK")

	cmd.Print("Embedding provider: ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("embedding provider check failed: %w", err)
	}
	cmd.Println("OK")

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	cmd.Print("LLM provider: ")
	if !settings.LLM.IsConfigured() {
		cmd.Println("not configured ('assistant ask' is disabled)")
		return nil
	}
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("LLM provider check failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

// providerKind distinguishes the two provider configuration flows.
type providerKind struct {
	label         string
	baseURLKey    string
	deploymentKey string
	providers     []domain.AIProvider
	defaultModels map[domain.AIProvider]string
	set           func(domain.AIProvider, string, string) error
	validate      func() error
}

func embeddingKind() providerKind {
	return providerKind{
		label:         "Embedding",
		baseURLKey:    services.KeyEmbedBaseURL,
		deploymentKey: services.KeyEmbedDeployment,
		providers:     domain.AllEmbeddingProviders(),
		defaultModels: domain.DefaultEmbeddingModels(),
		set:           settingsService.SetEmbeddingProvider,
		validate:      settingsService.ValidateEmbeddingConfig,
	}
}

func llmKind() providerKind {
	return providerKind{
		label:         "LLM",
		baseURLKey:    services.KeyLLMBaseURL,
		deploymentKey: services.KeyLLMDeployment,
		providers:     domain.AllLLMProviders(),
		defaultModels: domain.DefaultLLMModels(),
		set:           settingsService.SetLLMProvider,
		validate:      settingsService.ValidateLLMConfig,
	}
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}
	return configureProvider(cmd, embeddingKind())
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}
	return configureProvider(cmd, llmKind())
}

func configureProvider(cmd *cobra.Command, kind providerKind) error {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	interactive := !cmd.Flags().Changed("provider")

	var selected domain.AIProvider
	if interactive {
		cmd.Printf("Select %s Provider\n", kind.label)
		for i, p := range kind.providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		idx := parseChoice(readLine(reader), len(kind.providers), 1)
		selected = kind.providers[idx-1]
	} else {
		selected = domain.AIProvider(strings.ToLower(providerName))
		if !selected.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, providerName)
		}
	}

	model := providerModel
	if model == "" && interactive {
		cmd.Printf("Enter model name [%s]: ", kind.defaultModels[selected])
		model = readLine(reader)
	}

	baseURL := providerBaseURL
	if baseURL == "" && interactive && selected.RequiresEndpoint() {
		cmd.Print("Enter endpoint URL: ")
		baseURL = readLine(reader)
	}
	if baseURL == "" && selected.RequiresEndpoint() {
		return fmt.Errorf("%w: --base-url is required for %s", domain.ErrInvalidInput, selected)
	}

	deployment := providerDeployment
	if deployment == "" && interactive && selected == domain.AIProviderAzure {
		cmd.Print("Enter deployment name [model name]: ")
		deployment = readLine(reader)
	}

	apiKey := providerAPIKey
	if apiKey == "" && selected.RequiresAPIKey() {
		if !interactive {
			return fmt.Errorf("%w: --api-key is required for %s", domain.ErrInvalidInput, selected)
		}
		cmd.Print("Enter API key: ")
		apiKey = readPassword(in, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := kind.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(kind.label), err)
	}
	// SetXProvider resets the base URL to the provider default.
	if baseURL != "" {
		if err := settingsService.SetValue(kind.baseURLKey, baseURL); err != nil {
			return err
		}
	}
	if deployment != "" {
		if err := settingsService.SetValue(kind.deploymentKey, deployment); err != nil {
			return err
		}
	}

	if !providerSkipCheck {
		cmd.Print("Validating configuration... ")
		if err := kind.validate(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(kind.label), err)
		}
		cmd.Println("OK")
	}

	shownModel := model
	if shownModel == "" {
		shownModel = kind.defaultModels[selected]
	}
	cmd.Printf("%s provider configured: %s (%s)\n", kind.label, selected.Description(), shownModel)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
