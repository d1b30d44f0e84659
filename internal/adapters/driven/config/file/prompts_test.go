package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

// writePrompt writes content and stamps an explicit mtime so reload
// detection does not depend on filesystem timestamp resolution.
func writePrompt(t *testing.T, dir, name, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name+".txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".assistant", "prompts"), store.Dir())
}

func TestNewPromptStore_NoIO(t *testing.T) {
	_, dir := newTestPromptStore(t)

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_Load_SeedsDirectory(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)

	for _, f := range []string{"chat_system.txt", "context_answer.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_Load_Defaults(t *testing.T) {
	store, _ := newTestPromptStore(t)

	system, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Contains(t, system, "personal assistant")

	answer, err := store.Load(driven.PromptContextAnswer)
	require.NoError(t, err)
	assert.NoError(t, checkPrompt(driven.PromptContextAnswer, answer))
}

func TestPromptStore_Load_CustomFile(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	writePrompt(t, dir, driven.PromptChatSystem, "  Answer like a pirate.\n", time.Now())

	got, err := store.Load(driven.PromptChatSystem)

	require.NoError(t, err)
	assert.Equal(t, "Answer like a pirate.", got)
}

func TestPromptStore_SeedKeepsExistingFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	writePrompt(t, dir, driven.PromptChatSystem, "mine", time.Now())

	_, err := store.Load(driven.PromptContextAnswer)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "chat_system.txt"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestPromptStore_Load_PicksUpEdits(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	base := time.Now().Add(-time.Hour)
	writePrompt(t, dir, driven.PromptChatSystem, "first", base)

	got, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	writePrompt(t, dir, driven.PromptChatSystem, "second", base.Add(time.Minute))

	got, err = store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestPromptStore_Load_CachesUnchangedFile(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	stamp := time.Now().Add(-time.Hour)
	writePrompt(t, dir, driven.PromptChatSystem, "cached", stamp)

	_, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)

	// Same mtime: the cached text wins until Reload.
	writePrompt(t, dir, driven.PromptChatSystem, "changed", stamp)
	got, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Equal(t, "cached", got)

	store.Reload()
	got, err = store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Equal(t, "changed", got)
}

func TestPromptStore_Load_MalformedFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "   \n"},
		{"one placeholder", "Context: %s"},
		{"three placeholders", "%s %s %s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestPromptStore(t)
			require.NoError(t, os.MkdirAll(dir, 0700))
			writePrompt(t, dir, driven.PromptContextAnswer, tt.content, time.Now())

			got, err := store.Load(driven.PromptContextAnswer)

			require.NoError(t, err)
			def, _ := builtinPrompt(driven.PromptContextAnswer)
			assert.Equal(t, def, got)
		})
	}
}

func TestPromptStore_Load_DeletedFileFallsBack(t *testing.T) {
	store, dir := newTestPromptStore(t)
	_, err := store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "chat_system.txt")))

	got, err := store.Load(driven.PromptChatSystem)

	require.NoError(t, err)
	def, _ := builtinPrompt(driven.PromptChatSystem)
	assert.Equal(t, def, got)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, _ := newTestPromptStore(t)

	_, err := store.Load("nonexistent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromptStore_Load_UnwritableDirUsesDefaults(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	got, err := store.Load(driven.PromptChatSystem)

	require.NoError(t, err)
	assert.Contains(t, got, "personal assistant")
}

func TestPromptStore_Load_Concurrent(t *testing.T) {
	store, _ := newTestPromptStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := driven.PromptChatSystem
			if i%2 == 0 {
				name = driven.PromptContextAnswer
			}
			if _, err := store.Load(name); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestCheckPrompt(t *testing.T) {
	assert.NoError(t, checkPrompt(driven.PromptChatSystem, "Be brief."))
	assert.Error(t, checkPrompt(driven.PromptChatSystem, "Be %s."))
	assert.NoError(t, checkPrompt(driven.PromptContextAnswer, "%s\n\nQ: %s"))
	assert.Error(t, checkPrompt(driven.PromptContextAnswer, ""))
}
