package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to normalisers by MIME type.
// When several normalisers claim a type, the one with the highest
// Priority wins; on a tie the one registered first is kept.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string]driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byMIME: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range n.SupportedMIMETypes() {
		mt = BaseMIMEType(mt)
		if existing, ok := r.byMIME[mt]; ok && existing.Priority() >= n.Priority() {
			continue
		}
		r.byMIME[mt] = n
	}
}

// Get returns the normaliser for mimeType, or nil.
// Parameters such as "; charset=utf-8" are ignored.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byMIME[BaseMIMEType(mimeType)]
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Normalise extracts text from raw with the matching normaliser.
// Documents of an unregistered type fail with domain.ErrUnsupportedFormat.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mt := raw.MIMEType
	if mt == "" {
		mt = DetectMIMEType(raw.Name)
	}

	n := r.Get(mt)
	if n == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, mt)
	}
	return n.Normalise(ctx, raw)
}

// BaseMIMEType lower-cases mimeType and drops any parameters.
func BaseMIMEType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// extensionTypes covers extensions the platform MIME table may not know.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".java":     "text/x-java",
	".js":       "text/javascript",
	".ts":       "text/typescript",
	".sh":       "text/x-shellscript",
	".sql":      "text/x-sql",
}

// DetectMIMEType guesses a MIME type from a file name's extension.
// Unknown extensions yield "application/octet-stream".
func DetectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return BaseMIMEType(mt)
	}
	return "application/octet-stream"
}

// TitleFromURI derives a readable title from the last path element of uri:
// extension dropped, underscores and dashes turned into spaces.
func TitleFromURI(uri string) string {
	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// TitleOf returns the "title" metadata of raw if set, else TitleFromURI.
func TitleOf(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata[domain.MetaTitle].(string); ok && title != "" {
		return title
	}
	uri := raw.URI
	if uri == "" {
		uri = raw.Name
	}
	return TitleFromURI(uri)
}
