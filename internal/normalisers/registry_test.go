package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// stubNormaliser implements driven.Normaliser for testing.
type stubNormaliser struct {
	types    []string
	priority int
	format   string
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }

func (s *stubNormaliser) Priority() int { return s.priority }

func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	return &domain.ExtractedText{Text: string(raw.Content), Format: s.format}, nil
}

func TestRegistry_HighestPriorityWins(t *testing.T) {
	low := &stubNormaliser{types: []string{"text/plain", "text/html"}, priority: 5, format: "low"}
	high := &stubNormaliser{types: []string{"text/html"}, priority: 50, format: "high"}

	r := NewRegistry(high, low)

	assert.Same(t, high, r.Get("text/html"))
	assert.Same(t, low, r.Get("text/plain"))
	assert.Equal(t, []string{"text/html", "text/plain"}, r.SupportedMIMETypes())
}

func TestRegistry_GetIgnoresParameters(t *testing.T) {
	plain := &stubNormaliser{types: []string{"text/plain"}, priority: 5}
	r := NewRegistry(plain)

	assert.Same(t, plain, r.Get("Text/Plain; charset=utf-8"))
	assert.Nil(t, r.Get("application/pdf"))
}

func TestRegistry_Normalise(t *testing.T) {
	r := NewRegistry(&stubNormaliser{types: []string{"text/markdown"}, priority: 50, format: "markdown"})

	got, err := r.Normalise(context.Background(), &domain.RawDocument{Name: "notes.md", Content: []byte("hi")})

	require.NoError(t, err)
	assert.Equal(t, "markdown", got.Format)
	assert.Equal(t, "hi", got.Text)
}

func TestRegistry_NormaliseUnsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{Name: "photo.png", MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectMIMEType(t *testing.T) {
	tests := map[string]string{
		"a.txt":        "text/plain",
		"README.MD":    "text/markdown",
		"page.htm":     "text/html",
		"report.pdf":   "application/pdf",
		"letter.docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"no-extension": "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, DetectMIMEType(name), name)
	}
}

func TestTitleOf(t *testing.T) {
	assert.Equal(t, "quarterly report", TitleOf(&domain.RawDocument{URI: "/docs/quarterly_report.pdf"}))
	assert.Equal(t, "my notes", TitleOf(&domain.RawDocument{Name: "my-notes.txt"}))
	assert.Equal(t, "Set Title", TitleOf(&domain.RawDocument{
		URI:      "/x.txt",
		Metadata: map[string]any{domain.MetaTitle: "Set Title"},
	}))
}
