package rerank

import (
	"context"
	"sort"

	"chunkscope/internal/model"
)

// RRF implements Reciprocal Rank Fusion, both as a single-input
// Reranker (rescaling an existing ranking by 1/(k+rank+1), preserving
// order) and as a multi-input Fuser summing that same term per
// Chunk.ID across several independently-ranked lists. k defaults to 60
// when zero.
type RRF struct {
	K int
}

func NewRRF(k int) *RRF {
	if k <= 0 {
		k = defaultRRFK
	}
	return &RRF{K: k}
}

// Rerank treats candidates as a single pre-ranked list (input order is
// the ranking) and rescales it by RRF, preserving order.
func (r *RRF) Rerank(ctx context.Context, query string, candidates []model.RetrievalResult, topK int) ([]model.RerankedResult, error) {
	if topK <= 0 || len(candidates) == 0 {
		return nil, nil
	}
	out := make([]model.RerankedResult, len(candidates))
	for rank, c := range candidates {
		out[rank] = model.RerankedResult{
			Chunk:       c.Chunk,
			Score:       c.Score,
			RerankScore: rrfScore(r.K, rank),
			Metadata:    c.Metadata,
		}
	}
	if topK > len(out) {
		topK = len(out)
	}
	return out[:topK], nil
}

// Fuse combines several independently-ranked lists by summing
// 1/(k+rank+1) per Chunk.ID across every ranking containing that chunk,
// then returns the topK chunks by summed score.
func (r *RRF) Fuse(rankings [][]model.RetrievalResult, topK int) []model.RetrievalResult {
	if topK <= 0 {
		return nil
	}
	type acc struct {
		chunk model.Chunk
		score float64
	}
	byID := make(map[string]*acc)
	order := make([]string, 0)

	for _, ranking := range rankings {
		for rank, r2 := range ranking {
			id := r2.Chunk.ID
			if a, ok := byID[id]; ok {
				a.score += rrfScore(r.K, rank)
				continue
			}
			byID[id] = &acc{chunk: r2.Chunk, score: rrfScore(r.K, rank)}
			order = append(order, id)
		}
	}

	results := make([]model.RetrievalResult, 0, len(order))
	for _, id := range order {
		a := byID[id]
		results = append(results, model.RetrievalResult{Chunk: a.chunk, Score: a.score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}

func rrfScore(k, rank int) float64 {
	return 1.0 / float64(k+rank+1)
}
