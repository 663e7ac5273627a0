package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/rerank"
)

// multiQueryRetriever generates N query variants via C7, runs the inner
// retriever for each variant concurrently, and fuses the per-variant
// rankings with Reciprocal Rank Fusion (C3). The variant list is
// attached to every result's metadata under "multi_query_variants".
//
// Grounded on SPEC_FULL.md's decorator-retriever composition directive:
// wrapper kinds own only query transformation and fan-out, delegating
// retrieval and fusion to the inner retriever and the C3 Fuser.
type multiQueryRetriever struct {
	augment Augmentor
	fuser   Fuser
	deps    Deps
}

func (w *multiQueryRetriever) Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error) {
	if req.TopK <= 0 {
		return nil, nil
	}
	inner, err := New(innerKind(req.Params), w.deps)
	if err != nil {
		return nil, err
	}
	n := req.Params.Variants
	if n <= 0 {
		n = 3
	}
	variants, err := w.augment.MultiQuery(ctx, req.Query, n)
	if err != nil {
		return nil, model.NewError(model.ErrExternal, "multi_query generation failed", err)
	}

	type outcome struct {
		results []model.RetrievalResult
		err     error
	}
	outcomes := make([]outcome, len(variants))
	resultCh := make(chan int, len(variants))
	for i, variant := range variants {
		go func(i int, variant string) {
			subReq := req
			subReq.Query = variant
			// Variants share the query embedding for dense-family inner
			// retrievers; a variant-specific embedding is out of scope for
			// C7's text-only augmentation surface.
			results, err := inner.Retrieve(ctx, subReq)
			outcomes[i] = outcome{results: results, err: err}
			resultCh <- i
		}(i, variant)
	}
	for range variants {
		<-resultCh
	}

	rankings := make([][]model.RetrievalResult, 0, len(variants))
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		rankings = append(rankings, o.results)
	}
	if len(rankings) == 0 {
		return nil, model.NewError(model.ErrExternal, "all multi_query variants failed", nil)
	}

	fuser := w.fuser
	if req.Params.RRFK > 0 {
		fuser = rerank.NewRRF(req.Params.RRFK)
	}
	fused := fuser.Fuse(rankings, req.TopK)

	for i := range fused {
		if fused[i].Metadata == nil {
			fused[i].Metadata = make(map[string]any)
		}
		fused[i].Metadata["multi_query_variants"] = variants
	}
	return fused, nil
}
