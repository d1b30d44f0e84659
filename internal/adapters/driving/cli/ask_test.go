package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/services"
)

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.chat.answer = &domain.Answer{
		Text:        "You get 25 days of leave.",
		ContextUsed: true,
		Sources: []domain.ContextItem{
			{SourceName: "handbook.pdf", SequenceIndex: 4, SimilarityScore: 0.82},
		},
	}

	out, err := execute([]string{"ask", "How much leave do I get?"}, "")

	require.NoError(t, err)
	assert.Contains(t, out, "You get 25 days of leave.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] handbook.pdf #4 (0.82)")
	assert.Equal(t, services.DefaultChatTopK, m.chat.lastOpts.TopK)
	assert.Equal(t, domain.DefaultSimilarityThreshold, m.chat.lastOpts.Threshold)
}

func TestAskCmd_NoContextOmitsSources(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"ask", "anything"}, "")

	require.NoError(t, err)
	assert.Contains(t, out, "I don't know.")
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_Flags(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute([]string{"ask", "-k", "5", "-t", "0.6", "q"}, "")

	require.NoError(t, err)
	assert.Equal(t, 5, m.chat.lastOpts.TopK)
	assert.Equal(t, 0.6, m.chat.lastOpts.Threshold)
	assert.True(t, m.chat.lastOpts.ThresholdSet)
}

func TestAskCmd_ZeroThreshold(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute([]string{"ask", "--threshold", "0", "q"}, "")

	require.NoError(t, err)
	assert.Equal(t, 0.0, m.chat.lastOpts.Threshold)
	assert.True(t, m.chat.lastOpts.ThresholdSet)
}

func TestAskCmd_LLMUnavailableHint(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.chat.err = domain.ErrLLMUnavailable

	_, err := execute([]string{"ask", "q"}, "")

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "assistant settings llm")
}

func TestAskCmd_JSON(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.chat.answer = &domain.Answer{Text: "yes", Model: "llama3"}

	out, err := execute([]string{"ask", "--json", "q"}, "")

	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "yes", body["answer"])
	assert.Equal(t, "llama3", body["model"])
}
