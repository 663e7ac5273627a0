package handlers

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
	"chunkscope/internal/rerank"
)

// RerankerResult is the reranker Kind's output.
type RerankerResult struct {
	Results []model.RerankedResult `json:"results"`
}

type retrieverCarrier struct {
	Results []model.RetrievalResult `json:"results"`
}

// NewReranker returns a Handler for model.KindReranker. It reads
// candidates from the single upstream retriever node's output. Config
// "kind" selects the C3 strategy ("cross_encoder", "remote", "rrf",
// default "rrf"); "top_k" bounds the output (default: all candidates).
// cross_encoder and remote require a non-nil scorer/client respectively;
// configuring one without its collaborator wired falls back to RRF.
func NewReranker(scorer rerank.Scorer, remote rerank.RemoteScorer) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		upstream, ok := singleInput(inputs)
		if !ok {
			return nil, model.NewError(model.ErrMissingInput, "reranker requires exactly one upstream input", nil)
		}
		var carrier retrieverCarrier
		if err := decode(upstream, &carrier); err != nil {
			return nil, model.NewError(model.ErrMissingInput, "reranker: decoding upstream retriever output", err)
		}

		query := cfg.String("query")
		if query == "" {
			return nil, model.NewError(model.ErrMissingInput, "reranker requires config \"query\"", nil)
		}

		topK := cfg.Int("top_k", len(carrier.Results))
		if topK <= 0 {
			topK = len(carrier.Results)
		}

		var reranker ports.Reranker
		switch cfg.String("kind") {
		case "cross_encoder":
			if scorer == nil {
				reranker = rerank.NewRRF(cfg.Int("rrf_k", 0))
				break
			}
			reranker = rerank.NewCrossEncoder(scorer)
		case "remote":
			if remote == nil {
				reranker = rerank.NewRRF(cfg.Int("rrf_k", 0))
				break
			}
			reranker = rerank.NewRemote(remote)
		default:
			reranker = rerank.NewRRF(cfg.Int("rrf_k", 0))
		}

		results, err := reranker.Rerank(ctx, query, carrier.Results, topK)
		if err != nil {
			return nil, err
		}
		return RerankerResult{Results: results}, nil
	})
}
