// Package ports declares the external-collaborator interfaces (C8) that
// handlers and library code depend on instead of concrete SDKs:
// Embedder, Reranker, LLM, ChunkRepository, CheckpointStore, Clock.
// Grounded on internal/persistence/databases/interfaces.go's
// FullTextSearch/VectorStore shape, internal/rag/embedder/embedder.go's
// Embedder, internal/rag/retrieve/rerank.go's Reranker, the deleted
// internal/llm/provider.go's Provider (narrowed), and
// internal/rag/service/options.go's Clock.
package ports

import (
	"context"
	"time"

	"chunkscope/internal/model"
)

// Filter narrows a repository query to a document subset plus arbitrary
// backend-specific key/value constraints.
type Filter struct {
	DocumentID string
	Extra      map[string]string
}

// ChunkRepository is the storage port every retrieval strategy reads
// through. Implementations (Postgres+pgvector, Qdrant, in-memory) live in
// internal/store.
type ChunkRepository interface {
	// DenseSearch returns up to topK chunks ordered by descending cosine
	// similarity to queryEmbedding. Returned chunks carry their stored
	// Embedding so callers (e.g. MMR) can score further without a
	// second round trip.
	DenseSearch(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]model.RetrievalResult, error)

	// KeywordSearch returns up to topK chunks ranked by a language-agnostic,
	// monotone-in-relevance full-text score.
	KeywordSearch(ctx context.Context, query string, topK int, filter Filter) ([]model.RetrievalResult, error)

	// GetByID fetches a single chunk by ID. ok is false if not found.
	GetByID(ctx context.Context, id string) (model.Chunk, bool, error)

	// GetByIDs fetches chunks in bulk, e.g. parent lookups for
	// parent_document retrieval. Missing IDs are simply absent from the
	// result, not an error.
	GetByIDs(ctx context.Context, ids []string) ([]model.Chunk, error)

	// Upsert stores or replaces a chunk, including its embedding.
	Upsert(ctx context.Context, chunk model.Chunk) error
}

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Reranker reorders candidates with an added cross-list-comparable score.
// Implementations must not drop candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []model.RetrievalResult, topK int) ([]model.RerankedResult, error)
}

// CompletionOptions configures an LLM.Complete call.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// LLM is the narrow single-turn text-completion port C7's augmenters and
// the llm Kind handler need — deliberately not the teacher's broader
// multi-turn tool-calling Provider interface.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}

// CheckpointStore persists best-effort run snapshots for crash recovery.
// Loss is recoverable by re-execution, so implementations may be lossy
// under backpressure as long as Save/Load themselves don't corrupt data.
type CheckpointStore interface {
	Save(ctx context.Context, cp model.Checkpoint) error
	Load(ctx context.Context, runID model.RunID) (model.Checkpoint, bool, error)
}

// Clock abstracts time for deterministic tests, mirroring
// rag/service/options.go's Clock/SystemClock pair.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
