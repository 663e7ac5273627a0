// Package rerank implements the Reranker Library (C3): cross-encoder
// rescoring, a remote-service reranker with degrade-on-failure, and
// Reciprocal Rank Fusion both as a single-list rescaler and as a
// multi-list fuser.
//
// Grounded on internal/rag/retrieve/rerank.go's Reranker interface and
// NoopReranker passthrough idiom (carried into the remote reranker's
// transport-failure degrade path), and internal/rag/retrieve/fusion.go's
// rank-based RRF math (carried into Fuse/rescale here, since unlike
// hybrid retrieval C3's RRF is explicitly rank-based, not score-based).
package rerank

import (
	"context"
	"sort"

	"chunkscope/internal/model"
)

const defaultRRFK = 60

// Scorer computes a single relevance score for a query/candidate pair.
// Implementations may call out to a local cross-encoder model.
type Scorer interface {
	Score(ctx context.Context, query string, candidate model.RetrievalResult) (float64, error)
}

// CrossEncoder reranks candidates by a pluggable Scorer, sorting
// descending and truncating to topK. Input order is not assumed.
type CrossEncoder struct {
	Scorer Scorer
}

func NewCrossEncoder(scorer Scorer) *CrossEncoder {
	return &CrossEncoder{Scorer: scorer}
}

// Rerank degrades on a scoring failure (External or Timeout, per §7's
// propagation policy for reranker wrappers): rather than fail the whole
// run, it returns the first topK input candidates unchanged, same as
// Remote's transport-failure path.
func (c *CrossEncoder) Rerank(ctx context.Context, query string, candidates []model.RetrievalResult, topK int) ([]model.RerankedResult, error) {
	if topK <= 0 || len(candidates) == 0 {
		return nil, nil
	}
	scored := make([]model.RerankedResult, 0, len(candidates))
	for _, cand := range candidates {
		s, err := c.Scorer.Score(ctx, query, cand)
		if err != nil {
			return passthrough(candidates, topK), nil
		}
		scored = append(scored, model.RerankedResult{
			Chunk:       cand.Chunk,
			Score:       cand.Score,
			RerankScore: s,
			Metadata:    cand.Metadata,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RerankScore != scored[j].RerankScore {
			return scored[i].RerankScore > scored[j].RerankScore
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}
