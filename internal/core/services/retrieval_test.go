package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/storage/memory"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

func newRetrievalFixture(t *testing.T) *RetrievalService {
	t.Helper()
	store := memory.NewChunkStore()
	putChunk(t, store, "a.txt", 0, "alpha one", []float32{1, 0})
	putChunk(t, store, "a.txt", 1, "alpha two", []float32{0.99, 0.141})
	putChunk(t, store, "b.txt", 0, "beta", []float32{0.9, 0.436})
	putChunk(t, store, "c.txt", 0, "unrelated", []float32{0, 1})

	embedder := &mockEmbedder{fallback: []float32{1, 0}}
	return NewRetrievalService(embedder, NewSearchService(store, 2))
}

func TestRetrievalService_Retrieve(t *testing.T) {
	svc := newRetrievalFixture(t)

	items, err := svc.Retrieve(context.Background(), "alpha", domain.RetrieveOptions{TopK: 2, Threshold: 0.3})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.txt", items[0].SourceName)
	assert.Equal(t, "alpha one", items[0].ChunkText)
	assert.Equal(t, 0, items[0].SequenceIndex)
	assert.InDelta(t, 1.0, items[0].SimilarityScore, 1e-6)
	assert.Equal(t, "a.txt", items[1].SourceName)
	assert.Equal(t, 1, items[1].SequenceIndex)
}

func TestRetrievalService_DedupeBySource(t *testing.T) {
	svc := newRetrievalFixture(t)

	items, err := svc.Retrieve(context.Background(), "alpha", domain.RetrieveOptions{
		TopK:           2,
		Threshold:      0.3,
		DedupeBySource: true,
	})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.txt", items[0].SourceName)
	assert.Equal(t, 0, items[0].SequenceIndex)
	assert.Equal(t, "b.txt", items[1].SourceName)
}

func TestRetrievalService_NoMatches(t *testing.T) {
	searcher := &mockSearcher{hits: []domain.ScoredChunk{}}
	svc := NewRetrievalService(&mockEmbedder{fallback: []float32{1}}, searcher)

	items, err := svc.Retrieve(context.Background(), "anything", domain.RetrieveOptions{TopK: 5})

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestRetrievalService_EmptyQuery(t *testing.T) {
	svc := newRetrievalFixture(t)

	_, err := svc.Retrieve(context.Background(), "   ", domain.RetrieveOptions{TopK: 5})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_InvalidTopK(t *testing.T) {
	embedder := &mockEmbedder{fallback: []float32{1, 0}}
	svc := NewRetrievalService(embedder, &mockSearcher{})

	_, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 0})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, embedder.callCount())
}

func TestRetrievalService_EmbeddingFailure(t *testing.T) {
	searcher := &mockSearcher{}
	svc := NewRetrievalService(&mockEmbedder{embedErr: errors.New("quota exceeded")}, searcher)

	_, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Zero(t, searcher.lastOpts.Limit, "search must not run without a query vector")
}

func TestRetrievalService_NoEmbedder(t *testing.T) {
	svc := NewRetrievalService(nil, &mockSearcher{})

	_, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 5})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetrievalService_SearchFailure(t *testing.T) {
	searcher := &mockSearcher{err: domain.ErrSearchUnavailable}
	svc := NewRetrievalService(&mockEmbedder{fallback: []float32{1}}, searcher)

	_, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{TopK: 5})

	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
}

func TestRetrievalService_LongQueryIsCapped(t *testing.T) {
	embedder := &mockEmbedder{fallback: []float32{1}}
	svc := NewRetrievalService(embedder, &mockSearcher{hits: []domain.ScoredChunk{}})

	long := make([]rune, 9000)
	for i := range long {
		long[i] = 'é'
	}
	_, err := svc.Retrieve(context.Background(), string(long), domain.RetrieveOptions{TopK: 5})

	require.NoError(t, err)
	require.Len(t, embedder.inputs, 1)
	assert.Len(t, []rune(embedder.inputs[0]), 8000)
}

func TestDedupeBySource_KeepsFirstPerSource(t *testing.T) {
	hits := []domain.ScoredChunk{
		{Chunk: domain.Chunk{SourceName: "a", SequenceIndex: 3}, Similarity: 0.9},
		{Chunk: domain.Chunk{SourceName: "b"}, Similarity: 0.8},
		{Chunk: domain.Chunk{SourceName: "a", SequenceIndex: 1}, Similarity: 0.7},
	}

	got := dedupeBySource(hits)

	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Chunk.SequenceIndex)
	assert.Equal(t, "b", got[1].Chunk.SourceName)
}
