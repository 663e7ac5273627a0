package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// mmrRetriever fetches a candidate pool by dense similarity, then
// greedily selects topK candidates maximizing
// lambda*sim(q,c) - (1-lambda)*max_sim(c,selected), starting from the
// most query-similar candidate. lambda=1 degenerates to pure relevance
// ranking, lambda=0 to pure diversity.
type mmrRetriever struct {
	repo ports.ChunkRepository
}

func (m *mmrRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	if len(req.QueryEmbedding) == 0 {
		return nil, model.NewError(model.ErrMissingInput, "mmr retrieval requires a query embedding", nil)
	}
	fetchK := req.Params.FetchK
	if fetchK <= 0 {
		fetchK = 4 * req.TopK
		if fetchK < 20 {
			fetchK = 20
		}
	}
	if fetchK < req.TopK {
		fetchK = req.TopK
	}
	lambda := req.Params.Lambda

	candidates, err := m.repo.DenseSearch(ctx, req.QueryEmbedding, fetchK, req.DocumentFilter)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "dense search failed", err)
	}
	candidates = breakTies(candidates)
	k := resolveTopK(req.TopK, len(candidates))
	if k == 0 {
		return nil, nil
	}

	selected := make([]model.RetrievalResult, 0, k)
	remaining := append([]model.RetrievalResult(nil), candidates...)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		var bestScore float64
		for i, c := range remaining {
			relevance := c.Score
			var maxSimToSelected float64
			for _, s := range selected {
				sim := cosineSim(c.Chunk.Embedding, s.Chunk.Embedding)
				if sim > maxSimToSelected {
					maxSimToSelected = sim
				}
			}
			mmrScore := lambda*relevance - (1-lambda)*maxSimToSelected
			if bestIdx == -1 || mmrScore > bestScore ||
				(mmrScore == bestScore && relevance > remaining[bestIdx].Score) ||
				(mmrScore == bestScore && relevance == remaining[bestIdx].Score && c.Chunk.ID < remaining[bestIdx].Chunk.ID) {
				bestIdx = i
				bestScore = mmrScore
			}
		}
		picked := remaining[bestIdx]
		picked.Score = bestScore
		selected = append(selected, picked)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected, nil
}
