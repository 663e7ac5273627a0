package store

import (
	"context"
	"testing"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

func TestMemoryChunkRepository_UpsertAndGet(t *testing.T) {
	t.Parallel()
	repo := NewMemoryChunkRepository()
	ctx := context.Background()

	c := model.Chunk{ID: "c1", DocumentID: "doc1", Text: "hello world"}
	if err := repo.Upsert(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := repo.GetByID(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("GetByID: got=%v ok=%v err=%v", got, ok, err)
	}
	if got.Text != "hello world" {
		t.Fatalf("unexpected text: %q", got.Text)
	}

	_, ok, _ = repo.GetByID(ctx, "missing")
	if ok {
		t.Fatalf("expected missing chunk to not be found")
	}
}

func TestMemoryChunkRepository_UpsertCopiesMutableFields(t *testing.T) {
	t.Parallel()
	repo := NewMemoryChunkRepository()
	ctx := context.Background()

	emb := []float32{1, 2, 3}
	meta := map[string]any{"k": "v"}
	if err := repo.Upsert(ctx, model.Chunk{ID: "c1", Embedding: emb, Metadata: meta}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	emb[0] = 99
	meta["k"] = "mutated"

	got, _, _ := repo.GetByID(ctx, "c1")
	if got.Embedding[0] == 99 {
		t.Fatalf("expected stored embedding to be independent of caller's slice")
	}
	if got.Metadata["k"] == "mutated" {
		t.Fatalf("expected stored metadata to be independent of caller's map")
	}
}

func TestMemoryChunkRepository_DenseSearchRanksByCosine(t *testing.T) {
	t.Parallel()
	repo := NewMemoryChunkRepository()
	ctx := context.Background()

	_ = repo.Upsert(ctx, model.Chunk{ID: "close", DocumentID: "d", Embedding: []float32{1, 0}})
	_ = repo.Upsert(ctx, model.Chunk{ID: "far", DocumentID: "d", Embedding: []float32{0, 1}})
	_ = repo.Upsert(ctx, model.Chunk{ID: "no-embedding", DocumentID: "d"})

	results, err := repo.DenseSearch(ctx, []float32{1, 0}, 10, ports.Filter{})
	if err != nil {
		t.Fatalf("DenseSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected chunks without embeddings to be skipped, got %d results", len(results))
	}
	if results[0].Chunk.ID != "close" {
		t.Fatalf("expected closest vector first, got %q", results[0].Chunk.ID)
	}
}

func TestMemoryChunkRepository_KeywordSearchCountsTerms(t *testing.T) {
	t.Parallel()
	repo := NewMemoryChunkRepository()
	ctx := context.Background()

	_ = repo.Upsert(ctx, model.Chunk{ID: "a", DocumentID: "d", Text: "the cat sat on the mat"})
	_ = repo.Upsert(ctx, model.Chunk{ID: "b", DocumentID: "d", Text: "a dog barked"})

	results, err := repo.KeywordSearch(ctx, "cat mat", 10, ports.Filter{})
	if err != nil {
		t.Fatalf("KeywordSearch: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "a" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestMemoryChunkRepository_FilterByDocumentID(t *testing.T) {
	t.Parallel()
	repo := NewMemoryChunkRepository()
	ctx := context.Background()

	_ = repo.Upsert(ctx, model.Chunk{ID: "a", DocumentID: "doc1", Embedding: []float32{1, 0}})
	_ = repo.Upsert(ctx, model.Chunk{ID: "b", DocumentID: "doc2", Embedding: []float32{1, 0}})

	results, err := repo.DenseSearch(ctx, []float32{1, 0}, 10, ports.Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatalf("DenseSearch: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "a" {
		t.Fatalf("expected only doc1's chunk, got %+v", results)
	}
}

func TestMemoryChunkRepository_GetByIDsSkipsMissing(t *testing.T) {
	t.Parallel()
	repo := NewMemoryChunkRepository()
	ctx := context.Background()

	_ = repo.Upsert(ctx, model.Chunk{ID: "a"})
	out, err := repo.GetByIDs(ctx, []string{"a", "missing"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("unexpected result: %+v", out)
	}
}
