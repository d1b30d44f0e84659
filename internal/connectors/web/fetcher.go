// Package web fetches single documents over HTTP for ingestion.
package web

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers"
)

// Ensure Fetcher implements the interface.
var _ driven.DocumentFetcher = (*Fetcher)(nil)

const (
	// DefaultTimeout bounds a single page download.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps the bytes read from a response (10 MiB).
	DefaultMaxBodySize int64 = 10 << 20

	userAgent = "assistant/1.0 (+https://github.com/NAry-Byun/CWB-Hackathon-2025-sub000)"

	// SourcePrefix marks sources that came from the web.
	SourcePrefix = "web_"

	maxSourceNameLen = 100
)

var (
	unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
	underscoreRuns  = regexp.MustCompile(`_{2,}`)
)

// Fetcher downloads web pages.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxBodySize sets the maximum response size.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// NewFetcher creates a web fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads uri and returns it as a raw document.
// The document name is derived from the host and path.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*domain.RawDocument, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", domain.ErrInvalidInput, uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain,application/xhtml+xml;q=0.9,*/*;q=0.8")

	logger.Debug("Fetching %s", u.String())
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.String(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, u.String())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", u.String(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.String(), err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, u.String(), f.maxBodySize)
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	return &domain.RawDocument{
		Name:     SourceName(u.String()),
		URI:      final.String(),
		MIMEType: contentType(resp.Header.Get("Content-Type"), final.Path),
		Content:  body,
		Metadata: map[string]any{
			domain.MetaOrigin: domain.OriginURL,
			"status_code":     resp.StatusCode,
			"fetched_at":      time.Now().UTC(),
		},
	}, nil
}

// contentType returns the base MIME type from a Content-Type header,
// falling back to the path extension.
func contentType(header, path string) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil {
			return mt
		}
	}
	if mt := normalisers.DetectMIMEType(path); mt != "application/octet-stream" {
		return mt
	}
	return "text/html"
}

// SourceName turns a URL into a stable source name: host and path with
// unsafe characters replaced, underscore runs collapsed, capped at 100 runes.
func SourceName(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Host + u.Path
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	if r := []rune(name); len(r) > maxSourceNameLen {
		name = string(r[:maxSourceNameLen])
	}
	return SourcePrefix + name
}

// IsURL reports whether s looks like an http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
