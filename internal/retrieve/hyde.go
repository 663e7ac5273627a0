package retrieve

import (
	"context"

	"chunkscope/internal/model"
)

// hydeRetriever generates a hypothetical answer via C7 and retrieves
// using it in place of the original query, optionally re-embedding it
// when an Embedder is available.
type hydeRetriever struct {
	augment Augmentor
	deps    Deps
}

func (w *hydeRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	hypothetical, err := w.augment.HyDE(ctx, req.Query)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "hyde generation failed", err)
	}

	inner, err := New(innerKind(req.Params), w.deps)
	if err != nil {
		return nil, err
	}

	subReq := req
	subReq.Query = hypothetical
	if w.deps.Embedder != nil {
		emb, err := w.deps.Embedder.Embed(ctx, hypothetical)
		if err != nil {
			return nil, model.NewError(model.ErrExternal, "embedding hypothetical answer failed", err)
		}
		subReq.QueryEmbedding = emb
	}

	results, err := inner.Retrieve(ctx, subReq)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Metadata == nil {
			results[i].Metadata = make(map[string]any)
		}
		results[i].Metadata["hyde_query"] = hypothetical
	}
	return results, nil
}
