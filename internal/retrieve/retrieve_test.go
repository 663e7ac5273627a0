package retrieve

import (
	"context"
	"testing"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// fakeRepo is a scripted ports.ChunkRepository: DenseSearch and
// KeywordSearch return whatever was configured, ignoring their actual
// query/topK/filter arguments, since these tests exercise the
// retriever's fusion/selection logic, not repository behavior (already
// covered by internal/store's own tests).
type fakeRepo struct {
	dense   []model.RetrievalResult
	keyword []model.RetrievalResult
	err     error
}

func (f *fakeRepo) DenseSearch(_ context.Context, _ []float32, topK int, _ ports.Filter) ([]model.RetrievalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.dense) {
		return f.dense[:topK], nil
	}
	return f.dense, nil
}

func (f *fakeRepo) KeywordSearch(_ context.Context, _ string, topK int, _ ports.Filter) ([]model.RetrievalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.keyword) {
		return f.keyword[:topK], nil
	}
	return f.keyword, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (model.Chunk, bool, error) {
	return model.Chunk{}, false, nil
}

func (f *fakeRepo) GetByIDs(_ context.Context, ids []string) ([]model.Chunk, error) {
	return nil, nil
}

func (f *fakeRepo) Upsert(_ context.Context, _ model.Chunk) error {
	return nil
}

func chunk(id string, score float64, embedding ...float32) model.RetrievalResult {
	return model.RetrievalResult{Chunk: model.Chunk{ID: id, Embedding: embedding}, Score: score}
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()
	_, err := New(Kind("bogus"), Deps{})
	if err == nil {
		t.Fatal("expected an error for an unknown retriever kind")
	}
	if me, ok := err.(*model.Error); !ok || me.Kind != model.ErrInvalidConfig {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestDenseRetriever_RequiresEmbedding(t *testing.T) {
	t.Parallel()
	r, err := New(KindDense, Deps{Repo: &fakeRepo{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Retrieve(context.Background(), Request{TopK: 5})
	if me, ok := err.(*model.Error); !ok || me.Kind != model.ErrMissingInput {
		t.Fatalf("expected MissingInput, got %v", err)
	}
}

func TestDenseRetriever_ZeroTopKReturnsNothing(t *testing.T) {
	t.Parallel()
	r, err := New(KindDense, Deps{Repo: &fakeRepo{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Retrieve(context.Background(), Request{TopK: 0, QueryEmbedding: []float32{1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil results for topK<=0, got %v", out)
	}
}

func TestKeywordRetriever_BreaksTiesByID(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{keyword: []model.RetrievalResult{chunk("b", 1), chunk("a", 1)}}
	r, err := New(KindKeyword, Deps{Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Retrieve(context.Background(), Request{Query: "q", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Chunk.ID != "a" {
		t.Fatalf("expected tied scores broken by ascending ID, got %+v", out)
	}
}

func TestHybridRetriever_PureDenseWhenAlphaIsOne(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		dense:   []model.RetrievalResult{chunk("a", 0.9), chunk("b", 0.1)},
		keyword: []model.RetrievalResult{chunk("b", 10)},
	}
	r, err := New(KindHybrid, Deps{Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Retrieve(context.Background(), Request{
		Query: "q", TopK: 2, QueryEmbedding: []float32{1},
		Params: Params{Alpha: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Chunk.ID != "a" {
		t.Fatalf("expected dense ranking to dominate at alpha=1, got %+v", out)
	}
}

func TestHybridRetriever_RequiresEmbeddingWhenAlphaPositive(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{keyword: []model.RetrievalResult{chunk("a", 1)}}
	r, err := New(KindHybrid, Deps{Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Retrieve(context.Background(), Request{Query: "q", TopK: 2, Params: Params{Alpha: 0.5}})
	if me, ok := err.(*model.Error); !ok || me.Kind != model.ErrMissingInput {
		t.Fatalf("expected MissingInput, got %v", err)
	}
}

func TestHybridRetriever_UnionsBothListsByID(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		dense:   []model.RetrievalResult{chunk("a", 1)},
		keyword: []model.RetrievalResult{chunk("b", 1)},
	}
	r, err := New(KindHybrid, Deps{Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Retrieve(context.Background(), Request{
		Query: "q", TopK: 5, QueryEmbedding: []float32{1},
		Params: Params{Alpha: 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both chunks to appear in the union, got %+v", out)
	}
}

func TestMMRRetriever_PureRelevanceWhenLambdaIsOne(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{dense: []model.RetrievalResult{
		chunk("a", 0.9, 1, 0),
		chunk("b", 0.5, 1, 0), // identical embedding to "a": a diversity-aware pick would skip it
	}}
	r, err := New(KindMMR, Deps{Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Retrieve(context.Background(), Request{
		TopK: 2, QueryEmbedding: []float32{1, 0},
		Params: Params{Lambda: 1, FetchK: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Chunk.ID != "a" || out[1].Chunk.ID != "b" {
		t.Fatalf("expected pure relevance order at lambda=1, got %+v", out)
	}
}

func TestMMRRetriever_PenalizesSimilarityWhenLambdaIsZero(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{dense: []model.RetrievalResult{
		chunk("a", 0.9, 1, 0),
		chunk("b", 0.5, 1, 0),   // identical to "a"
		chunk("c", 0.4, 0, 1), // orthogonal to "a": diverse pick
	}}
	r, err := New(KindMMR, Deps{Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Retrieve(context.Background(), Request{
		TopK: 2, QueryEmbedding: []float32{1, 0},
		Params: Params{Lambda: 0, FetchK: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Chunk.ID != "a" {
		t.Fatalf("expected 'a' picked first (nothing selected yet to penalize), got %+v", out)
	}
	if out[1].Chunk.ID != "c" {
		t.Fatalf("expected the orthogonal chunk 'c' preferred over redundant 'b' at lambda=0, got %+v", out)
	}
}
