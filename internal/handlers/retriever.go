package handlers

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
	"chunkscope/internal/retrieve"
)

// RetrieverResult is the retriever Kind's output.
type RetrieverResult struct {
	Results  []model.RetrievalResult `json:"results"`
	Count    int                     `json:"count"`
	Metadata map[string]any          `json:"metadata,omitempty"`
}

type queryCarrier struct {
	Query string `json:"query"`
	Text  string `json:"text"`
}

// NewRetriever returns a Handler for model.KindRetriever. Config
// "kind" selects the C2 strategy (dense, keyword, hybrid, mmr,
// parent_document, multi_query, hyde, expansion); "query" supplies the
// search text directly, overridable by an upstream node's "query" or
// "text" field when Config omits it. "top_k" (default 10), "alpha",
// "lambda", "fetch_k", "variants", "inner" configure the strategies
// that use them. When the selected strategy needs a query embedding
// and none is supplied, the handler embeds the query itself via emb,
// when emb is non-nil.
func NewRetriever(repo ports.ChunkRepository, emb ports.Embedder, augment retrieve.Augmentor, fuser retrieve.Fuser) registry.Handler {
	deps := retrieve.Deps{Repo: repo, Embedder: emb, Augment: augment, Fuser: fuser}
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		kind := retrieve.Kind(cfg.String("kind"))
		if kind == "" {
			kind = retrieve.KindDense
		}

		query := cfg.String("query")
		if query == "" {
			if upstream, ok := singleInput(inputs); ok {
				var qc queryCarrier
				if decode(upstream, &qc) == nil {
					if qc.Query != "" {
						query = qc.Query
					} else if qc.Text != "" {
						query = qc.Text
					}
				}
			}
		}
		if query == "" {
			return nil, model.NewError(model.ErrMissingInput, "retriever requires a query, from config or upstream node", nil)
		}

		retriever, err := retrieve.New(kind, deps)
		if err != nil {
			return nil, err
		}

		req := retrieve.Request{
			Query: query,
			TopK:  cfg.Int("top_k", 10),
			Params: retrieve.Params{
				Alpha:    cfg.Float("alpha", 0.5),
				Lambda:   cfg.Float("lambda", 0.5),
				FetchK:   cfg.Int("fetch_k", 0),
				Variants: cfg.Int("variants", 0),
				RRFK:     cfg.Int("rrf_k", 0),
				Inner:    retrieve.Kind(cfg.String("inner")),
			},
		}
		if docID := cfg.String("document_filter"); docID != "" {
			req.DocumentFilter = ports.Filter{DocumentID: docID}
		}

		needsEmbedding := kind == retrieve.KindDense || kind == retrieve.KindHybrid ||
			kind == retrieve.KindMMR || kind == retrieve.KindParentDocument
		if needsEmbedding && emb != nil {
			vec, err := emb.Embed(ctx, query)
			if err != nil {
				return nil, model.NewError(model.ErrExternal, "retriever: embedding query", err)
			}
			req.QueryEmbedding = vec
		}

		results, err := retriever.Retrieve(ctx, req)
		if err != nil {
			return nil, err
		}
		return RetrieverResult{Results: results, Count: len(results)}, nil
	})
}
