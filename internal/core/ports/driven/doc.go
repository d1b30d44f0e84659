// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Chunk persistence and the embedding scan (SQLite or memory)
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - Chunker: Splits document text into overlapping windows
//   - NormaliserRegistry: Selects the extractor for a document's MIME type
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model chat. Without it, search-and-chat is disabled
//     and retrieval still works.
//   - PromptStore: Customisable prompts. Without it, built-in prompts are used.
//   - Connector: Document sources for directory sync and watch.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
