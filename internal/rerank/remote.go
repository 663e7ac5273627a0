package rerank

import (
	"context"

	"chunkscope/internal/model"
)

// RemoteScorer calls an out-of-process reranking service for a full
// batch of candidates in one round trip, returning rerank scores
// aligned by index with the input slice.
type RemoteScorer interface {
	ScoreBatch(ctx context.Context, query string, candidates []model.RetrievalResult) ([]float64, error)
}

// Remote reranks via a RemoteScorer, with the same contract as
// CrossEncoder. On transport failure it degrades: rather than erroring
// the whole pipeline, it returns the first topK of the input unchanged,
// matching the teacher's NoopReranker passthrough idiom for a
// best-effort reranking stage.
type Remote struct {
	Scorer RemoteScorer
}

func NewRemote(scorer RemoteScorer) *Remote {
	return &Remote{Scorer: scorer}
}

func (r *Remote) Rerank(ctx context.Context, query string, candidates []model.RetrievalResult, topK int) ([]model.RerankedResult, error) {
	if topK <= 0 || len(candidates) == 0 {
		return nil, nil
	}
	scores, err := r.Scorer.ScoreBatch(ctx, query, candidates)
	if err != nil || len(scores) != len(candidates) {
		return passthrough(candidates, topK), nil
	}

	out := make([]model.RerankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = model.RerankedResult{
			Chunk:       c.Chunk,
			Score:       c.Score,
			RerankScore: scores[i],
			Metadata:    c.Metadata,
		}
	}
	sortByRerankScore(out)
	if topK > len(out) {
		topK = len(out)
	}
	return out[:topK], nil
}

func passthrough(candidates []model.RetrievalResult, topK int) []model.RerankedResult {
	if topK > len(candidates) {
		topK = len(candidates)
	}
	out := make([]model.RerankedResult, topK)
	for i := 0; i < topK; i++ {
		c := candidates[i]
		out[i] = model.RerankedResult{
			Chunk:       c.Chunk,
			Score:       c.Score,
			RerankScore: c.Score,
			Metadata:    c.Metadata,
		}
	}
	return out
}
