package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// hybridRetriever blends dense and keyword rankings. Each list is
// fetched at 2*topK, independently min-max normalized to [0,1], then
// combined as alpha*denseNorm + (1-alpha)*keywordNorm per Chunk.ID.
// alpha=1 degenerates to pure dense, alpha=0 to pure keyword.
//
// Diverges deliberately from the teacher's rank-based RRF fusion
// (internal/rag/retrieve/fusion.go): the blend here is score-based
// per-list min-max normalization, as this domain's hybrid retriever
// formula requires.
type hybridRetriever struct {
	repo ports.ChunkRepository
}

func (h *hybridRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	alpha := req.Params.Alpha
	fetchK := req.TopK * 2
	if fetchK < req.TopK {
		fetchK = req.TopK
	}

	var denseResults, keywordResults []model.RetrievalResult
	if alpha > 0 {
		if len(req.QueryEmbedding) == 0 {
			return nil, model.NewError(model.ErrMissingInput, "hybrid retrieval requires a query embedding when alpha>0", nil)
		}
		dr, err := h.repo.DenseSearch(ctx, req.QueryEmbedding, fetchK, req.DocumentFilter)
		if err != nil {
			return nil, model.NewError(model.ErrExternal, "dense search failed", err)
		}
		denseResults = dr
	}
	if alpha < 1 {
		kr, err := h.repo.KeywordSearch(ctx, req.Query, fetchK, req.DocumentFilter)
		if err != nil {
			return nil, model.NewError(model.ErrExternal, "keyword search failed", err)
		}
		keywordResults = kr
	}

	denseNorm := minMaxNormalize(denseResults)
	keywordNorm := minMaxNormalize(keywordResults)

	type combined struct {
		chunk model.Chunk
		score float64
	}
	byID := make(map[string]*combined)
	order := make([]string, 0, len(denseResults)+len(keywordResults))

	for i, r := range denseResults {
		byID[r.Chunk.ID] = &combined{chunk: r.Chunk, score: alpha * denseNorm[i]}
		order = append(order, r.Chunk.ID)
	}
	for i, r := range keywordResults {
		if c, ok := byID[r.Chunk.ID]; ok {
			c.score += (1 - alpha) * keywordNorm[i]
			continue
		}
		byID[r.Chunk.ID] = &combined{chunk: r.Chunk, score: (1 - alpha) * keywordNorm[i]}
		order = append(order, r.Chunk.ID)
	}

	out := make([]model.RetrievalResult, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		c := byID[id]
		out = append(out, model.RetrievalResult{Chunk: c.chunk, Score: c.score})
	}

	out = breakTies(out)
	k := resolveTopK(req.TopK, len(out))
	return out[:k], nil
}
