package mcp

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	items    []domain.ContextItem
	err      error
	lastOpts domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrieveOptions,
) ([]domain.ContextItem, error) {
	m.lastOpts = opts
	return m.items, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result  *domain.IngestResult
	err     error
	lastReq domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockIngestService) IngestBatch(_ context.Context, _ []domain.IngestRequest) (*domain.BatchResult, error) {
	return &domain.BatchResult{}, m.err
}

func (m *mockIngestService) IngestDocument(
	_ context.Context,
	_ *domain.RawDocument,
	req domain.IngestRequest,
) (*domain.IngestResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockIngestService) DeleteSource(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer   *domain.Answer
	err      error
	lastOpts domain.RetrieveOptions
}

func (m *mockChatService) Ask(_ context.Context, _ string, opts domain.RetrieveOptions) (*domain.Answer, error) {
	m.lastOpts = opts
	return m.answer, m.err
}

// mockMaintenanceService is a mock implementation of driving.MaintenanceService.
type mockMaintenanceService struct {
	stats  *domain.Stats
	health *domain.HealthReport
	err    error
}

func (m *mockMaintenanceService) Backfill(_ context.Context, _ int) (*domain.BackfillResult, error) {
	return &domain.BackfillResult{}, m.err
}

func (m *mockMaintenanceService) Stats(_ context.Context) (*domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockMaintenanceService) Health(_ context.Context) *domain.HealthReport {
	return m.health
}
