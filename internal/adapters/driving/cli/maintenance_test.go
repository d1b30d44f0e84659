package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

func TestStatsCmd(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.maintenance.stats = &domain.Stats{
		TotalChunks:      12,
		UniqueSources:    2,
		MissingEmbedding: 3,
		Sources: []domain.SourceSummary{
			{SourceName: "handbook.pdf", ChunkCount: 10, LastIngested: time.Now()},
			{SourceName: "notes.md", ChunkCount: 2, LastIngested: time.Now()},
		},
	}

	out, err := execute([]string{"stats"}, "")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:  12")
	assert.Contains(t, out, "Sources: 2")
	assert.Contains(t, out, "Missing embeddings: 3")
	assert.Contains(t, out, "handbook.pdf")
	assert.Contains(t, out, "10 chunks")
}

func TestStatsCmd_JSON(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.maintenance.stats = &domain.Stats{TotalChunks: 1, UniqueSources: 1}

	out, err := execute([]string{"stats", "--json"}, "")

	require.NoError(t, err)
	var stats domain.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.TotalChunks)
}

func TestHealthCmd(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		m, cleanup := setupTestServices()
		defer cleanup()
		m.maintenance.health = &domain.HealthReport{Components: []domain.ComponentHealth{
			{Name: "store", Status: domain.HealthOK},
			{Name: "llm", Status: domain.HealthDisabled, Detail: "not configured"},
		}}

		out, err := execute([]string{"health"}, "")

		require.NoError(t, err)
		assert.Contains(t, out, "store")
		assert.Contains(t, out, "not configured")
	})

	t.Run("unhealthy returns error", func(t *testing.T) {
		m, cleanup := setupTestServices()
		defer cleanup()
		m.maintenance.health = &domain.HealthReport{Components: []domain.ComponentHealth{
			{Name: "embedding", Status: domain.HealthUnavailable, Detail: "connection refused"},
		}}

		out, err := execute([]string{"health"}, "")

		require.Error(t, err)
		assert.Contains(t, out, "connection refused")
	})
}

func TestBackfillCmd(t *testing.T) {
	t.Run("reports counts", func(t *testing.T) {
		m, cleanup := setupTestServices()
		defer cleanup()
		m.maintenance.backfill = &domain.BackfillResult{Scanned: 5, Repaired: 4, Failed: 1}

		out, err := execute([]string{"backfill", "--limit", "10"}, "")

		require.NoError(t, err)
		assert.Equal(t, 10, m.maintenance.lastLimit)
		assert.Contains(t, out, "Scanned 5 chunks: 4 repaired, 1 failed")
	})

	t.Run("no embedder hint", func(t *testing.T) {
		m, cleanup := setupTestServices()
		defer cleanup()
		m.maintenance.err = domain.ErrEmbeddingUnavailable

		_, err := execute([]string{"backfill"}, "")

		require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "assistant settings embedding")
	})
}
