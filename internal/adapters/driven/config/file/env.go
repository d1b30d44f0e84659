package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// Ensure EnvConfigStore implements the interface.
var _ driven.ConfigStore = (*EnvConfigStore)(nil)

// LoadEnv loads .env files into the process environment. Variables that are
// already set are never overridden, and missing files are skipped.
// With no paths, ./.env and <configDir>/.env are tried.
func LoadEnv(configDir string, paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
		if configDir != "" {
			paths = append(paths, filepath.Join(configDir, ".env"))
		}
	}

	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// EnvBinding maps environment variables onto a config key.
type EnvBinding struct {
	// Key is the config key the binding fills.
	Key string

	// Vars are tried in order; the first non-empty one supplies the value.
	Vars []string

	// Value, when set, is used instead of the variable's content. Every
	// entry in Vars must then be non-empty for the binding to apply.
	Value string

	// WhenKey and WhenValue restrict the binding to configurations where
	// WhenKey currently resolves to WhenValue.
	WhenKey   string
	WhenValue string
}

// DefaultEnvBindings returns the bindings for the OpenAI and Azure OpenAI
// environment variables.
//
//nolint:gosec // G101: variable names, not credentials.
func DefaultEnvBindings() []EnvBinding {
	var b []EnvBinding
	for _, prefix := range []string{"embedding", "llm"} {
		upper := strings.ToUpper(prefix)
		deploymentVar := "AZURE_OPENAI_DEPLOYMENT_NAME"
		if prefix == "embedding" {
			deploymentVar = "AZURE_OPENAI_EMBEDDING_DEPLOYMENT"
		}
		b = append(b,
			EnvBinding{Key: prefix + ".provider", Vars: []string{"ASSISTANT_" + upper + "_PROVIDER"}},
			EnvBinding{Key: prefix + ".provider", Vars: []string{"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY"}, Value: "azure"},
			EnvBinding{Key: prefix + ".provider", Vars: []string{"OPENAI_API_KEY"}, Value: "openai"},
			EnvBinding{Key: prefix + ".api_key", Vars: []string{"AZURE_OPENAI_API_KEY"}, WhenKey: prefix + ".provider", WhenValue: "azure"},
			EnvBinding{Key: prefix + ".api_key", Vars: []string{"OPENAI_API_KEY"}, WhenKey: prefix + ".provider", WhenValue: "openai"},
			EnvBinding{Key: prefix + ".base_url", Vars: []string{"AZURE_OPENAI_ENDPOINT"}, WhenKey: prefix + ".provider", WhenValue: "azure"},
			EnvBinding{Key: prefix + ".base_url", Vars: []string{"OLLAMA_HOST"}, WhenKey: prefix + ".provider", WhenValue: "ollama"},
			EnvBinding{Key: prefix + ".deployment", Vars: []string{deploymentVar}, WhenKey: prefix + ".provider", WhenValue: "azure"},
			EnvBinding{Key: prefix + ".api_version", Vars: []string{"AZURE_OPENAI_API_VERSION"}},
		)
	}
	b = append(b, EnvBinding{Key: "log.level", Vars: []string{"LOG_LEVEL"}})
	return b
}

// EnvConfigStore overlays environment variables on another ConfigStore.
// Values set in the wrapped store always win; the environment only fills
// keys the store leaves unset. Writes go to the wrapped store, so values
// from the environment are never persisted.
type EnvConfigStore struct {
	inner    driven.ConfigStore
	bindings []EnvBinding
	getenv   func(string) string
}

// NewEnvConfigStore wraps inner. Nil bindings means DefaultEnvBindings.
func NewEnvConfigStore(inner driven.ConfigStore, bindings []EnvBinding) *EnvConfigStore {
	if bindings == nil {
		bindings = DefaultEnvBindings()
	}
	return &EnvConfigStore{
		inner:    inner,
		bindings: bindings,
		getenv:   os.Getenv,
	}
}

// Get returns the stored value, or the environment value for key.
func (s *EnvConfigStore) Get(key string) (any, bool) {
	// Empty strings are written by Save for unset fields; treat them as unset.
	if v, ok := s.inner.Get(key); ok && v != "" {
		return v, true
	}
	return s.fromEnv(key, 0)
}

// maxConditionDepth stops WhenKey chains that refer back to themselves.
const maxConditionDepth = 4

func (s *EnvConfigStore) fromEnv(key string, depth int) (any, bool) {
	if depth > maxConditionDepth {
		return nil, false
	}
	for _, b := range s.bindings {
		if b.Key != key {
			continue
		}
		if b.WhenKey != "" && s.resolveString(b.WhenKey, depth+1) != b.WhenValue {
			continue
		}
		if v, ok := s.bindingValue(b); ok {
			return v, true
		}
	}
	return nil, false
}

func (s *EnvConfigStore) resolveString(key string, depth int) string {
	if v, ok := s.inner.Get(key); ok && v != "" {
		str, _ := v.(string)
		return str
	}
	v, ok := s.fromEnv(key, depth)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

func (s *EnvConfigStore) bindingValue(b EnvBinding) (string, bool) {
	if b.Value != "" {
		for _, name := range b.Vars {
			if strings.TrimSpace(s.getenv(name)) == "" {
				return "", false
			}
		}
		return b.Value, len(b.Vars) > 0
	}
	for _, name := range b.Vars {
		if v := strings.TrimSpace(s.getenv(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// GetString retrieves a string configuration value.
func (s *EnvConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt retrieves an integer configuration value.
// Environment values are parsed.
func (s *EnvConfigStore) GetInt(key string) int {
	v, ok := s.Get(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	case int:
		return t
	case int64:
		return int(t)
	default:
		return 0
	}
}

// GetFloat retrieves a floating point configuration value.
func (s *EnvConfigStore) GetFloat(key string) float64 {
	v, ok := s.Get(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *EnvConfigStore) GetBool(key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	case bool:
		return t
	default:
		return false
	}
}

// Set writes to the wrapped store.
func (s *EnvConfigStore) Set(key string, value any) error {
	return s.inner.Set(key, value)
}

// Keys returns stored keys plus keys currently supplied by the environment.
func (s *EnvConfigStore) Keys() []string {
	seen := make(map[string]bool)
	for _, k := range s.inner.Keys() {
		seen[k] = true
	}
	for _, b := range s.bindings {
		if seen[b.Key] {
			continue
		}
		if _, ok := s.fromEnv(b.Key, 0); ok {
			seen[b.Key] = true
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromEnvironment reports whether key's value currently comes from the
// environment rather than the config file.
func (s *EnvConfigStore) FromEnvironment(key string) bool {
	if v, ok := s.inner.Get(key); ok && v != "" {
		return false
	}
	_, ok := s.fromEnv(key, 0)
	return ok
}

// Save persists the wrapped store.
func (s *EnvConfigStore) Save() error { return s.inner.Save() }

// Load reloads the wrapped store.
func (s *EnvConfigStore) Load() error { return s.inner.Load() }

// Path returns the wrapped store's path.
func (s *EnvConfigStore) Path() string { return s.inner.Path() }
