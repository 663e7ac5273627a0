// Package retrieve implements the Retriever Library (C2): pluggable
// retrieval strategies over a ports.ChunkRepository, plus decorator
// wrappers that transform the query before delegating to an inner
// retriever.
//
// Grounded on internal/chunking/chunking.go's Strategy/Config/Split
// dispatcher shape: a closed Kind enum, a single Config carrying every
// strategy's parameters, and a per-kind constructor returning a common
// interface.
package retrieve

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// Kind identifies a retrieval strategy.
type Kind string

const (
	KindDense          Kind = "dense"
	KindKeyword        Kind = "keyword"
	KindHybrid         Kind = "hybrid"
	KindMMR            Kind = "mmr"
	KindParentDocument Kind = "parent_document"
	KindMultiQuery     Kind = "multi_query"
	KindHyDE           Kind = "hyde"
	KindExpansion      Kind = "expansion"
)

// Params carries every strategy's tunables; only the fields relevant to
// the selected Kind are read.
type Params struct {
	Alpha       float64 // hybrid: dense/keyword blend weight, in [0,1]
	Lambda      float64 // mmr: relevance/diversity blend weight, in [0,1]
	FetchK      int     // mmr: candidate pool size before diversification
	Variants    int    // multi_query: number of generated query variants
	RRFK        int    // multi_query fusion: RRF k constant, 0 means default
	Inner       Kind   // wrapper kinds: the retriever to delegate to
	InnerParams *Params // not read: wrapper kinds pass their own Params to the inner retriever
}

// Request is the single input to every Retriever.
type Request struct {
	Query          string
	TopK           int
	DocumentFilter ports.Filter
	QueryEmbedding []float32
	Params         Params
}

// Retriever is implemented by every retrieval strategy, plain or
// decorator.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) ([]model.RetrievalResult, error)
}

// Deps bundles the collaborators a retriever kind may need. Not every
// kind uses every field: dense/hybrid/mmr/parent_document need Repo and
// usually Embedder; keyword needs only Repo; multi_query/hyde/expansion
// need Augmentor (and multi_query additionally needs a Fuser for RRF).
type Deps struct {
	Repo     ports.ChunkRepository
	Embedder ports.Embedder
	Augment  Augmentor
	Fuser    Fuser
}

// Augmentor is the subset of C7 the retrieval wrappers depend on.
// Satisfied by *augment.Augmentor.
type Augmentor interface {
	MultiQuery(ctx context.Context, query string, n int) ([]string, error)
	HyDE(ctx context.Context, query string) (string, error)
	Expansion(ctx context.Context, query string) (string, error)
}

// Fuser is the subset of C3 the multi_query wrapper depends on to fuse
// per-variant rankings via Reciprocal Rank Fusion. Satisfied by
// *rerank.RRF.
type Fuser interface {
	Fuse(rankings [][]model.RetrievalResult, topK int) []model.RetrievalResult
}

// New constructs the Retriever for kind. Wrapper kinds (multi_query,
// hyde, expansion) build their inner retriever on each Retrieve call,
// from Request.Params.Inner.
func New(kind Kind, deps Deps) (Retriever, error) {
	switch kind {
	case KindDense:
		return &denseRetriever{repo: deps.Repo}, nil
	case KindKeyword:
		return &keywordRetriever{repo: deps.Repo}, nil
	case KindHybrid:
		return &hybridRetriever{repo: deps.Repo}, nil
	case KindMMR:
		return &mmrRetriever{repo: deps.Repo}, nil
	case KindParentDocument:
		return &parentDocumentRetriever{repo: deps.Repo}, nil
	case KindMultiQuery:
		return &multiQueryRetriever{augment: deps.Augment, fuser: deps.Fuser, deps: deps}, nil
	case KindHyDE:
		return &hydeRetriever{augment: deps.Augment, deps: deps}, nil
	case KindExpansion:
		return &expansionRetriever{augment: deps.Augment, deps: deps}, nil
	default:
		return nil, model.NewError(model.ErrInvalidConfig, "unknown retriever kind: "+string(kind), nil)
	}
}

// innerKind resolves the inner retriever kind a wrapper should delegate
// to, defaulting to dense retrieval when unspecified.
func innerKind(p Params) Kind {
	if p.Inner == "" {
		return KindDense
	}
	return p.Inner
}

// resolveTopK clamps requested topK to the available candidate count,
// never negative. topK<=0 means "no results", matching the spec's
// empty-candidates and topK=0 edge cases.
func resolveTopK(topK, available int) int {
	if topK <= 0 {
		return 0
	}
	if topK > available {
		return available
	}
	return topK
}
