package driven

import "context"

// MaxEmbeddingInput is the longest text, in characters, passed to a provider.
// Callers truncate longer input before calling Embed.
const MaxEmbeddingInput = 8000

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Azure OpenAI deployments (text-embedding-ada-002)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// A failed call or an empty vector is reported as domain.EmbeddingError.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// Zero means it is not known until the first successful Embed.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup and by the health check.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
