package handlers

import (
	"context"
	"fmt"

	"chunkscope/internal/chunking"
	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
)

// SplitterResult is the splitter Kind's output.
type SplitterResult struct {
	Chunks []model.Chunk `json:"chunks"`
	Count  int           `json:"count"`
}

// chunkingEmbedder adapts a context-free chunking.Embedder call onto a
// ports.Embedder, binding the handler invocation's ctx so the semantic
// strategy's per-sentence embedding calls still honor cancellation and
// the engine's per-node timeout.
type chunkingEmbedder struct {
	ctx context.Context
	emb ports.Embedder
}

func (c chunkingEmbedder) Embed(text string) ([]float32, error) {
	return c.emb.Embed(c.ctx, text)
}

// NewSplitter returns a Handler for model.KindSplitter, calling C1's
// chunking.Split against the single upstream loader's text. Config
// fields map onto chunking.Config: "strategy", "chunk_size", "overlap",
// "window_size", "min_chunk_size", "threshold". "document_id" tags
// every emitted model.Chunk. emb backs the semantic strategy's
// per-sentence embedding calls; it may be nil if that strategy is never
// used.
func NewSplitter(emb ports.Embedder) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		upstream, ok := singleInput(inputs)
		if !ok {
			return nil, model.NewError(model.ErrMissingInput, "splitter requires exactly one upstream input", nil)
		}
		var loaded LoaderResult
		if err := decode(upstream, &loaded); err != nil {
			return nil, model.NewError(model.ErrMissingInput, "splitter: decoding upstream loader output", err)
		}

		strategy := chunking.Strategy(cfg.String("strategy"))
		if strategy == "" {
			strategy = chunking.StrategyRecursive
		}
		scfg := chunking.Config{
			Strategy:     strategy,
			ChunkSize:    cfg.Int("chunk_size", 512),
			Overlap:      cfg.Int("overlap", 0),
			WindowSize:   cfg.Int("window_size", 1),
			MinChunkSize: cfg.Int("min_chunk_size", 1),
			Threshold:    cfg.Float("threshold", 0.5),
		}
		if strategy == chunking.StrategySemantic && emb != nil {
			scfg.Embedder = chunkingEmbedder{ctx: ctx, emb: emb}
		}

		spans, cerr := chunking.Split(loaded.Text, scfg)
		if cerr != nil {
			return nil, cerr
		}

		docID := cfg.String("document_id")
		chunks := make([]model.Chunk, len(spans))
		for i, span := range spans {
			chunks[i] = model.Chunk{
				ID:         fmt.Sprintf("%s:%d", docID, span.Index),
				DocumentID: docID,
				Text:       span.Text,
				Index:      span.Index,
				StartChar:  span.StartChar,
				EndChar:    span.EndChar,
				Metadata:   span.Metadata,
			}
		}
		return SplitterResult{Chunks: chunks, Count: len(chunks)}, nil
	})
}
