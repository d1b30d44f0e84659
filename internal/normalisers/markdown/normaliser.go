// Package markdown extracts text from Markdown documents, dropping markup
// and code so that only prose is embedded.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Format is the ExtractedText format this normaliser reports.
const Format = "markdown"

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips Markdown formatting. The title is the first level-one
// heading, or else the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	title := firstHeading(content)
	if title == "" {
		title = normalisers.TitleOf(raw)
	}

	return &domain.ExtractedText{
		Title:  title,
		Text:   stripMarkdown(content),
		Format: Format,
	}, nil
}

var (
	h1Line       = regexp.MustCompile(`(?m)^\s*#\s+(.+?)\s*$`)
	codeBlock    = regexp.MustCompile("(?s)```.*?```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	stars        = regexp.MustCompile(`\*{1,2}([^*\n]+?)\*{1,2}`)
	underscores  = regexp.MustCompile(`\b_{1,2}([^_\n]+?)_{1,2}\b`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	horizontal   = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	bullets      = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numbered     = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	frontMatter  = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	trailingWSPs = regexp.MustCompile(`[ \t]+\n`)
)

func firstHeading(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	if m := h1Line.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// stripMarkdown reduces Markdown to plain text. It handles the common
// constructs only; reference links are left as is.
func stripMarkdown(content string) string {
	content = frontMatter.ReplaceAllString(content, "")
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = horizontal.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "")
	content = stars.ReplaceAllString(content, "$1")
	content = underscores.ReplaceAllString(content, "$1")
	content = blockquote.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "")
	content = numbered.ReplaceAllString(content, "")
	content = trailingWSPs.ReplaceAllString(content, "\n")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
