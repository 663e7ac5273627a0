package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// denseRetriever ranks candidates by cosine similarity between the
// request's query embedding and each chunk's embedding. Requires
// req.QueryEmbedding; the repository itself is expected to compute the
// similarity and return results already sorted descending.
type denseRetriever struct {
	repo ports.ChunkRepository
}

func (d *denseRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	if len(req.QueryEmbedding) == 0 {
		return nil, model.NewError(model.ErrMissingInput, "dense retrieval requires a query embedding", nil)
	}
	results, err := d.repo.DenseSearch(ctx, req.QueryEmbedding, req.TopK, req.DocumentFilter)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "dense search failed", err)
	}
	return breakTies(results), nil
}
