package handlers

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
)

// EmbedderResult is the embedder Kind's output: one vector per upstream
// chunk, keyed by Chunk.ID. Chunks only carries the chunks with their
// Embedding field populated when Config "attach" is true — by default
// embeddings are returned standalone so a downstream vector_db node can
// persist them without doubling the payload through every intermediate
// result.
type EmbedderResult struct {
	Dimensions int                  `json:"dimensions"`
	Count      int                  `json:"count"`
	Embeddings map[string][]float32 `json:"embeddings"`
	Chunks     []model.Chunk        `json:"chunks,omitempty"`
}

// NewEmbedder returns a Handler for model.KindEmbedder, embedding every
// chunk produced by the single upstream splitter node through emb.
func NewEmbedder(emb ports.Embedder) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		upstream, ok := singleInput(inputs)
		if !ok {
			return nil, model.NewError(model.ErrMissingInput, "embedder requires exactly one upstream input", nil)
		}
		var split SplitterResult
		if err := decode(upstream, &split); err != nil {
			return nil, model.NewError(model.ErrMissingInput, "embedder: decoding upstream splitter output", err)
		}

		embeddings := make(map[string][]float32, len(split.Chunks))
		attach := cfg.Bool("attach", false)
		chunks := split.Chunks

		for i, c := range split.Chunks {
			if err := ctx.Err(); err != nil {
				return nil, model.NewError(model.ErrCancelled, "embedder cancelled", err)
			}
			vec, err := emb.Embed(ctx, c.Text)
			if err != nil {
				return nil, model.NewError(model.ErrExternal, "embedder: embedding chunk "+c.ID, err)
			}
			embeddings[c.ID] = vec
			if attach {
				chunks[i].Embedding = vec
			}
		}

		result := EmbedderResult{Dimensions: emb.Dimension(), Count: len(embeddings), Embeddings: embeddings}
		if attach {
			result.Chunks = chunks
		}
		return result, nil
	})
}
