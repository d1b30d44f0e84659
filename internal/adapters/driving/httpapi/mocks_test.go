package httpapi

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

type mockRetrieval struct {
	items     []domain.ContextItem
	err       error
	lastQuery string
	lastOpts  domain.RetrieveOptions
}

func (m *mockRetrieval) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) ([]domain.ContextItem, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.items, m.err
}

type mockIngest struct {
	result     *domain.IngestResult
	err        error
	deleted    int
	lastReq    domain.IngestRequest
	lastRaw    *domain.RawDocument
	lastDelete string
}

func (m *mockIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockIngest) IngestBatch(_ context.Context, _ []domain.IngestRequest) (*domain.BatchResult, error) {
	return &domain.BatchResult{}, m.err
}

func (m *mockIngest) IngestDocument(_ context.Context, raw *domain.RawDocument, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.lastRaw = raw
	m.lastReq = req
	return m.result, m.err
}

func (m *mockIngest) DeleteSource(_ context.Context, name string) (int, error) {
	m.lastDelete = name
	return m.deleted, m.err
}

type mockChat struct {
	answer       *domain.Answer
	err          error
	lastQuestion string
	lastOpts     domain.RetrieveOptions
}

func (m *mockChat) Ask(_ context.Context, question string, opts domain.RetrieveOptions) (*domain.Answer, error) {
	m.lastQuestion = question
	m.lastOpts = opts
	return m.answer, m.err
}

type mockMaintenance struct {
	stats  *domain.Stats
	health *domain.HealthReport
	err    error
}

func (m *mockMaintenance) Backfill(_ context.Context, _ int) (*domain.BackfillResult, error) {
	return &domain.BackfillResult{}, m.err
}

func (m *mockMaintenance) Stats(_ context.Context) (*domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockMaintenance) Health(_ context.Context) *domain.HealthReport {
	return m.health
}

type mockFetcher struct {
	doc     *domain.RawDocument
	err     error
	lastURI string
}

func (m *mockFetcher) Fetch(_ context.Context, uri string) (*domain.RawDocument, error) {
	m.lastURI = uri
	return m.doc, m.err
}
