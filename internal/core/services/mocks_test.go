package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/storage/memory"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
// Texts found in vectors get that vector; anything else gets fallback.
type mockEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	fallback  []float32
	embedErr  error
	failCalls map[int]bool // 1-based call numbers that fail
	pingErr   error
	calls     int
	inputs    []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, text)

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failCalls[m.calls] {
		return nil, errors.New("provider unavailable")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) Dimensions() int {
	return len(m.fallback)
}

func (m *mockEmbedder) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbedder) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockEmbedder) Close() error {
	return nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	reply    string
	chatErr  error
	pingErr  error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
	calls    int
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string {
	return "mock-llm"
}

func (m *mockLLM) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockLLM) Close() error {
	return nil
}

// mockRetrieval implements driving.RetrievalService for testing.
type mockRetrieval struct {
	items    []domain.ContextItem
	err      error
	lastOpts domain.RetrieveOptions
	calls    int
}

func (m *mockRetrieval) Retrieve(_ context.Context, _ string, opts domain.RetrieveOptions) ([]domain.ContextItem, error) {
	m.calls++
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

// mockSearcher implements driving.Searcher for testing.
type mockSearcher struct {
	hits     []domain.ScoredChunk
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

// mockPrompts implements driven.PromptStore for testing.
type mockPrompts struct {
	prompts map[string]string
}

func (m *mockPrompts) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPrompts) Reload() {}

// mockRegistry implements driven.NormaliserRegistry for testing.
type mockRegistry struct {
	extracted *domain.ExtractedText
	err       error
}

func (m *mockRegistry) Register(_ driven.Normaliser) {}

func (m *mockRegistry) Get(_ string) driven.Normaliser {
	return nil
}

func (m *mockRegistry) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

func (m *mockRegistry) Normalise(_ context.Context, _ *domain.RawDocument) (*domain.ExtractedText, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.extracted, nil
}

// mockIngest implements driving.IngestService for testing.
type mockIngest struct {
	mu       sync.Mutex
	docErrs  map[string]error
	ingested []string
	requests []domain.IngestRequest
	deleted  []string
}

func (m *mockIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	return &domain.IngestResult{SourceName: req.SourceName, ChunksCreated: 1}, nil
}

func (m *mockIngest) IngestBatch(_ context.Context, _ []domain.IngestRequest) (*domain.BatchResult, error) {
	return &domain.BatchResult{}, nil
}

func (m *mockIngest) IngestDocument(
	_ context.Context,
	raw *domain.RawDocument,
	req domain.IngestRequest,
) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.docErrs[raw.Name]; err != nil {
		return nil, err
	}
	m.ingested = append(m.ingested, raw.Name)
	m.requests = append(m.requests, req)
	return &domain.IngestResult{SourceName: raw.Name, ChunksCreated: 2}, nil
}

func (m *mockIngest) DeleteSource(_ context.Context, sourceName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, sourceName)
	return 1, nil
}

// mockConnector implements driven.Connector for testing.
type mockConnector struct {
	docs        []domain.RawDocument
	syncErr     error
	validateErr error
	changes     []domain.RawDocumentChange
	watchErr    error
}

func (m *mockConnector) Type() string {
	return "mock"
}

func (m *mockConnector) Validate(_ context.Context) error {
	return m.validateErr
}

func (m *mockConnector) FullSync(_ context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument, len(m.docs))
	errs := make(chan error, 1)
	for _, d := range m.docs {
		docs <- d
	}
	if m.syncErr != nil {
		errs <- m.syncErr
	} else {
		close(docs)
	}
	close(errs)
	return docs, errs
}

func (m *mockConnector) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	ch := make(chan domain.RawDocumentChange, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockConnector) Close() error {
	return nil
}

// mockValidator implements driven.AIConfigValidator for testing.
type mockValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

// failingStore wraps the memory store and fails selected operations.
type failingStore struct {
	*memory.ChunkStore
	scanErr        error
	countErr       error
	putErr         error
	listMissingErr error
	missingErr     error
}

func (f *failingStore) ScanWithEmbeddings(ctx context.Context, fn func(domain.Chunk) error) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	return f.ChunkStore.ScanWithEmbeddings(ctx, fn)
}

func (f *failingStore) Count(ctx context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.ChunkStore.Count(ctx)
}

func (f *failingStore) Put(ctx context.Context, c *domain.Chunk) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	return f.ChunkStore.Put(ctx, c)
}

func (f *failingStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Chunk, error) {
	if f.listMissingErr != nil {
		return nil, f.listMissingErr
	}
	return f.ChunkStore.ListMissingEmbeddings(ctx, limit)
}

func (f *failingStore) CountMissingEmbeddings(ctx context.Context) (int, error) {
	if f.missingErr != nil {
		return 0, f.missingErr
	}
	return f.ChunkStore.CountMissingEmbeddings(ctx)
}

// putChunk stores a chunk for test setup.
func putChunk(t *testing.T, store driven.ChunkStore, source string, seq int, text string, vec []float32) {
	t.Helper()
	_, err := store.Put(context.Background(), &domain.Chunk{
		SourceName:    source,
		SequenceIndex: seq,
		Text:          text,
		Embedding:     vec,
		Metadata:      map[string]any{},
	})
	if err != nil {
		t.Fatalf("put chunk: %v", err)
	}
}
