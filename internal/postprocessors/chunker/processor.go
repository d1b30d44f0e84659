// Package chunker provides a sentence-aware sliding-window text chunker.
package chunker

import (
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into overlapping chunks of at most chunkSize
// characters, preferring to cut at sentence or paragraph boundaries.
// Sizes are measured in runes, never bytes, so multi-byte text is not split
// inside a character.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// Callers that need a hard failure on bad values should run
// domain.ValidateChunking first; New only clamps.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't reach chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Chunk splits text into trimmed, non-empty chunks in document order.
//
// Each window is chunkSize characters. Unless the window reaches the end of
// the text, the cut moves back to just after the last '.', '!' or '?' in the
// second half of the window, or failing that just after the last blank line.
// The next window starts overlap characters before the cut, and always
// after the previous start.
func (p *Processor) Chunk(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]string, 0, n/step+1)

	start := 0
	for start < n {
		end := min(start+p.chunkSize, n)

		cut := end
		if end < n {
			cut = p.findBreak(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:cut])); piece != "" {
			chunks = append(chunks, piece)
		}

		if cut >= n {
			break
		}

		next := cut - p.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// findBreak returns the cut position for the window [start, end).
// Only the second half of the window is searched.
func (p *Processor) findBreak(runes []rune, start, end int) int {
	floor := start + p.chunkSize/2

	for i := end - 1; i >= floor; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}

	for i := end - 2; i >= floor; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}

	return end
}
