package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// keywordRetriever ranks candidates by the repository's full-text-search
// rank function, which must be monotone in relevance. No embedding is
// required.
type keywordRetriever struct {
	repo ports.ChunkRepository
}

func (k *keywordRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	results, err := k.repo.KeywordSearch(ctx, req.Query, req.TopK, req.DocumentFilter)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "keyword search failed", err)
	}
	return breakTies(results), nil
}
