package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// parentDocumentRetriever dense-retrieves child chunks, groups them by
// ParentID keeping the maximum child score per parent, then returns the
// parent chunks ordered by that score. Falls back to plain dense
// retrieval when none of the retrieved children carry a ParentID.
type parentDocumentRetriever struct {
	repo ports.ChunkRepository
}

func (p *parentDocumentRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	if len(req.QueryEmbedding) == 0 {
		return nil, model.NewError(model.ErrMissingInput, "parent_document retrieval requires a query embedding", nil)
	}
	fetchK := req.TopK * 2
	if fetchK < req.TopK {
		fetchK = req.TopK
	}
	children, err := p.repo.DenseSearch(ctx, req.QueryEmbedding, fetchK, req.DocumentFilter)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "dense search failed", err)
	}

	hasParents := false
	for _, c := range children {
		if c.Chunk.ParentID != "" {
			hasParents = true
			break
		}
	}
	if !hasParents {
		children = breakTies(children)
		k := resolveTopK(req.TopK, len(children))
		return children[:k], nil
	}

	bestByParent := make(map[string]float64)
	order := make([]string, 0, len(children))
	for _, c := range children {
		if c.Chunk.ParentID == "" {
			continue
		}
		if prev, ok := bestByParent[c.Chunk.ParentID]; !ok || c.Score > prev {
			if !ok {
				order = append(order, c.Chunk.ParentID)
			}
			bestByParent[c.Chunk.ParentID] = c.Score
		}
	}

	parentIDs := make([]string, len(order))
	copy(parentIDs, order)
	parents, err := p.repo.GetByIDs(ctx, parentIDs)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "fetching parent chunks failed", err)
	}
	parentByID := make(map[string]model.Chunk, len(parents))
	for _, pc := range parents {
		parentByID[pc.ID] = pc
	}

	results := make([]model.RetrievalResult, 0, len(order))
	for _, id := range order {
		pc, ok := parentByID[id]
		if !ok {
			continue
		}
		results = append(results, model.RetrievalResult{Chunk: pc, Score: bestByParent[id]})
	}
	results = breakTies(results)
	k := resolveTopK(req.TopK, len(results))
	return results[:k], nil
}
