package services

import (
	"context"
	"errors"
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// PrepareEmbeddingInput trims text and caps it at driven.MaxEmbeddingInput runes.
func PrepareEmbeddingInput(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= driven.MaxEmbeddingInput {
		return text
	}
	runes := []rune(text)
	if len(runes) <= driven.MaxEmbeddingInput {
		return text
	}
	return string(runes[:driven.MaxEmbeddingInput])
}

// embedText embeds one piece of text. It never returns a zero vector in
// place of a failure: empty input, provider errors and empty vectors all
// come back as domain.EmbeddingError.
func embedText(ctx context.Context, svc driven.EmbeddingService, text string) ([]float32, error) {
	if svc == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	input := PrepareEmbeddingInput(text)
	if input == "" {
		return nil, domain.NewEmbeddingError("empty input", nil)
	}

	vec, err := svc.Embed(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, err
		}
		return nil, domain.NewEmbeddingError("provider call", err)
	}
	if len(vec) == 0 {
		return nil, domain.NewEmbeddingError("provider returned an empty vector", nil)
	}
	return vec, nil
}
