package domain

// RawDocument represents opaque bytes fetched by a connector.
// It is the connector's output before text extraction.
type RawDocument struct {
	// Name is the source name chunks of this document will carry.
	Name string

	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawDocumentChange represents a change event from a connector watch.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Document is the affected document. Content is empty for deletions.
	Document RawDocument
}

// ExtractedText is the output of a normaliser: plain text ready for chunking.
type ExtractedText struct {
	// Title is a human-readable title, if one could be found.
	Title string

	// Text is the plain text content.
	Text string

	// Format names the extractor that produced the text (e.g., "markdown").
	Format string
}
