// Package evidence manages the guideline evidence collection: a durable
// vector index of guideline chunks backed by PostgreSQL + pgvector.
//
// The package owns three concerns:
//
//   - Embedder: a fixed-dimension wrapper around a genkit ai.Embedder that
//     guarantees uniform 768-dimension vectors, a canonical zero vector for
//     empty input, rate-limited batching, and order-preserving batch output.
//   - Store: idempotent chunk upserts (transactional per batch), cosine
//     nearest-neighbor search with exact-match metadata filters, and the
//     destructive ReplaceAll used only by full reindexing.
//   - Types: Chunk and Result, the records shared with the rag package.
//
// The store never converts distances to relevance scores; that is the
// retriever's job (see rag.RelevanceFromDistance). The store reports raw
// cosine distances so the conversion stays a single, testable function.
//
// Store and Embedder are safe for concurrent use by multiple goroutines.
// The read path (Search, Count) performs no mutation and may be called at
// arbitrary concurrency against an already-built index.
package evidence
