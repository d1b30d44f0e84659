package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Format is the ExtractedText format this normaliser reports.
const Format = "html"

// Normaliser handles HTML documents, including pages fetched from URLs.
type Normaliser struct{}

// New creates an HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts readable text from a page. When the page marks its
// content with <main> or a single <article>, only that region is kept.
// The title comes from <title>, then og:title, then the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page := string(raw.Content)

	title := pageTitle(page)
	if title == "" {
		title = normalisers.TitleOf(raw)
	}

	return &domain.ExtractedText{
		Title:  title,
		Text:   stripHTML(contentRegion(page)),
		Format: Format,
	}, nil
}

// chrome lists elements dropped with their contents: non-text payloads
// and navigation around the content.
var chrome = []string{"head", "script", "style", "noscript", "template", "svg", "iframe", "form", "nav", "footer"}

var (
	titleTag   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	ogTitle    = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']*)["']`)
	mainTag    = regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`)
	articleTag = regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`)
	comments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreaks = regexp.MustCompile(`(?i)<(br|hr)\s*/?>|</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|main|header|dd|dt)(\s[^>]*)?>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	blanks     = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)

	chromeTags = compileChrome(chrome)
)

func compileChrome(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, name := range names {
		out = append(out, regexp.MustCompile(`(?is)<`+name+`(\s[^>]*)?>.*?</`+name+`>`))
	}
	return out
}

// pageTitle returns the decoded document title, or "".
func pageTitle(page string) string {
	for _, re := range []*regexp.Regexp{titleTag, ogTitle} {
		if m := re.FindStringSubmatch(page); len(m) == 2 {
			if t := strings.TrimSpace(html.UnescapeString(anyTag.ReplaceAllString(m[1], ""))); t != "" {
				return t
			}
		}
	}
	return ""
}

// contentRegion narrows page to <main>, or to its only <article>.
// Anything else is returned whole.
func contentRegion(page string) string {
	if m := mainTag.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	if all := articleTag.FindAllStringSubmatch(page, 2); len(all) == 1 {
		return all[0][1]
	}
	return page
}

// stripHTML reduces markup to text, one block element per line.
func stripHTML(content string) string {
	content = comments.ReplaceAllString(content, "")
	for _, re := range chromeTags {
		content = re.ReplaceAllString(content, "")
	}
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(blanks.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
