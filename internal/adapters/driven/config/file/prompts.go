package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt defaults/README.md
var defaultFS embed.FS

const promptExt = ".txt"

// placeholders is the number of %s verbs each template must carry.
var placeholders = map[string]int{
	driven.PromptChatSystem:    0,
	driven.PromptContextAnswer: 2,
}

type cachedPrompt struct {
	text    string
	modTime time.Time
}

// PromptStore serves prompt templates from <dir>/<name>.txt, seeding the
// directory with built-in defaults on first use. A file edited on disk is
// reloaded when its modification time changes. A missing or malformed file
// falls back to the built-in default.
type PromptStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedPrompt

	seedOnce sync.Once
	seedErr  error
}

// NewPromptStore creates a prompt store rooted at dir, or at
// ~/.assistant/prompts when dir is empty. Nothing is written until the
// first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".assistant", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	def, err := builtinPrompt(name)
	if err != nil {
		return "", err
	}

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		logger.Debug("prompts: %v; using built-in %s", s.seedErr, name)
		return def, nil
	}

	path := filepath.Join(s.dir, name+promptExt)
	info, err := os.Stat(path)
	if err != nil {
		return def, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return def, nil
	}
	text := strings.TrimSpace(string(data))
	if err := checkPrompt(name, text); err != nil {
		logger.Warn("prompts: %s: %v; using built-in", path, err)
		text = def
	}
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	return text, nil
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrompt)
	s.mu.Unlock()
}

// seed creates the directory and writes any default file that is missing.
// Existing files are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	entries, err := fs.ReadDir(defaultFS, "defaults")
	if err != nil {
		s.seedErr = err
		return
	}
	for _, e := range entries {
		target := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaultFS.ReadFile("defaults/" + e.Name())
		if err != nil {
			s.seedErr = err
			return
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			s.seedErr = fmt.Errorf("write default %s: %w", e.Name(), err)
			return
		}
	}
}

func builtinPrompt(name string) (string, error) {
	if _, ok := placeholders[name]; !ok {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	data, err := defaultFS.ReadFile("defaults/" + name + promptExt)
	if err != nil {
		return "", fmt.Errorf("built-in prompt %q: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// checkPrompt rejects empty templates and templates whose %s count does
// not match what the caller formats into them.
func checkPrompt(name, text string) error {
	if text == "" {
		return errors.New("empty prompt")
	}
	want := placeholders[name]
	if got := strings.Count(text, "%s"); got != want {
		return fmt.Errorf("want %d %%s placeholders, found %d", want, got)
	}
	return nil
}
