package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestConfigStore_ImplementsInterface(t *testing.T) {
	var _ driven.ConfigStore = (*ConfigStore)(nil)
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "deep")

	store, err := NewConfigStore(nestedPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nestedPath, "config.toml"), store.Path())

	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("embedding.provider", "azure"))
	require.NoError(t, store.Set("chunker.chunk_size", 800))
	require.NoError(t, store.Set("search.threshold", 0.45))
	require.NoError(t, store.Set("search.dedupe", true))

	assert.Equal(t, "azure", store.GetString("embedding.provider"))
	assert.Equal(t, 800, store.GetInt("chunker.chunk_size"))
	assert.InDelta(t, 0.45, store.GetFloat("search.threshold"), 1e-9)
	assert.InDelta(t, 800.0, store.GetFloat("chunker.chunk_size"), 1e-9)
	assert.True(t, store.GetBool("search.dedupe"))

	// Wrong types fall back to zero values.
	assert.Equal(t, "", store.GetString("chunker.chunk_size"))
	assert.Equal(t, 0, store.GetInt("embedding.provider"))
	assert.Equal(t, 0.0, store.GetFloat("search.dedupe"))
	assert.False(t, store.GetBool("embedding.provider"))

	_, ok := store.Get("missing.key")
	assert.False(t, ok)
}

func TestConfigStore_Keys(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("search.top_k", 5))
	require.NoError(t, store.Set("embedding.model", "text-embedding-3-small"))
	require.NoError(t, store.Set("log.level", "info"))

	assert.Equal(t, []string{"embedding.model", "log.level", "search.top_k"}, store.Keys())
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("embedding.dimensions", 1536))
	require.NoError(t, store.Set("search.threshold", 0.3))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
	assert.NotContains(t, string(raw), "embedding.provider")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "openai", reloaded.GetString("embedding.provider"))
	assert.Equal(t, 1536, reloaded.GetInt("embedding.dimensions"))
	assert.InDelta(t, 0.3, reloaded.GetFloat("search.threshold"), 1e-9)
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
log_level = "debug"

[llm]
provider = "ollama"
model = "llama3.2"

[chunker]
chunk_size = 1000
overlap = 200
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("llm.provider"))
	assert.Equal(t, 1000, store.GetInt("chunker.chunk_size"))
	assert.Equal(t, 200, store.GetInt("chunker.overlap"))
	assert.Equal(t, "debug", store.GetString("log_level"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause a write error.
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# Just a comment\n"), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Empty(t, store.Keys())
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store := newTestConfigStore(t)

	assert.Error(t, store.Set("channel", make(chan int)))
	_, ok := store.Get("channel")
	assert.False(t, ok)
}

func TestConfigStore_FailedSetRestoresPrevious(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("search.top_k", 5))

	assert.Error(t, store.Set("search.top_k", make(chan int)))
	assert.Equal(t, 5, store.GetInt("search.top_k"))
}

func TestConfigStore_WritesHeaderAndNoTempFiles(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("search.top_k", 5))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# assistant configuration"))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("search.top_k", i)
			_ = store.GetInt("search.top_k")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	_, ok := store.Get("search.top_k")
	assert.True(t, ok)
}

func TestUnflattenMap(t *testing.T) {
	got := unflattenMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"top":   true,
	})

	assert.Equal(t, map[string]any{
		"a":   map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"top": true,
	}, got)
}

func TestUnflattenMap_ValueWinsOverTable(t *testing.T) {
	got := unflattenMap(map[string]any{
		"a":   "scalar",
		"a.b": 1,
	})

	assert.Equal(t, map[string]any{"a": "scalar"}, got)
}

func TestFlattenMap(t *testing.T) {
	got := flattenMap(map[string]any{
		"a":   map[string]any{"b": int64(1), "c": map[string]any{"d": "x"}},
		"top": true,
	}, "")

	assert.Equal(t, map[string]any{"a.b": int64(1), "a.c.d": "x", "top": true}, got)
}
