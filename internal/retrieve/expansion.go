package retrieve

import (
	"context"

	"chunkscope/internal/model"
)

// expansionRetriever generates a synonym/keyword-expanded query via C7
// and passes it through to the inner retriever unchanged otherwise.
// Intended for use with the keyword retriever, but delegates to
// whatever inner kind is configured.
type expansionRetriever struct {
	augment Augmentor
	deps    Deps
}

func (w *expansionRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	expanded, err := w.augment.Expansion(ctx, req.Query)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "expansion generation failed", err)
	}

	kind := req.Params.Inner
	if kind == "" {
		kind = KindKeyword
	}
	inner, err := New(kind, w.deps)
	if err != nil {
		return nil, err
	}

	subReq := req
	subReq.Query = expanded

	results, err := inner.Retrieve(ctx, subReq)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Metadata == nil {
			results[i].Metadata = make(map[string]any)
		}
		results[i].Metadata["expanded_query"] = expanded
	}
	return results, nil
}
