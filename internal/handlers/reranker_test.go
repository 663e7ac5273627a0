package handlers

import (
	"context"
	"errors"
	"testing"

	"chunkscope/internal/model"
	"chunkscope/internal/registry"
)

func retrievalInputs(n int) registry.Inputs {
	results := make([]model.RetrievalResult, n)
	for i := 0; i < n; i++ {
		results[i] = model.RetrievalResult{
			Chunk: model.Chunk{ID: string(rune('a' + i)), Text: "text"},
			Score: float64(n - i),
		}
	}
	return registry.Inputs{"retrieve": retrieverCarrier{Results: results}}
}

func TestReranker_DefaultsToRRF(t *testing.T) {
	t.Parallel()
	h := NewReranker(nil, nil)
	out, err := h.Execute(context.Background(), model.Config{"query": "q", "top_k": 2}, retrievalInputs(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := out.(RerankerResult)
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
}

func TestReranker_MissingQuery(t *testing.T) {
	t.Parallel()
	h := NewReranker(nil, nil)
	_, err := h.Execute(context.Background(), model.Config{}, retrievalInputs(1))
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrMissingInput {
		t.Fatalf("expected MissingInput, got %v", err)
	}
}

func TestReranker_MissingUpstream(t *testing.T) {
	t.Parallel()
	h := NewReranker(nil, nil)
	_, err := h.Execute(context.Background(), model.Config{"query": "q"}, registry.Inputs{})
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrMissingInput {
		t.Fatalf("expected MissingInput, got %v", err)
	}
}

type stubScorer struct {
	score float64
	err   error
}

func (s stubScorer) Score(ctx context.Context, query string, cand model.RetrievalResult) (float64, error) {
	return s.score, s.err
}

func TestReranker_CrossEncoderDegradesOnScoreFailure(t *testing.T) {
	t.Parallel()
	h := NewReranker(stubScorer{err: errors.New("model unavailable")}, nil)
	out, err := h.Execute(context.Background(), model.Config{"query": "q", "kind": "cross_encoder", "top_k": 2}, retrievalInputs(3))
	if err != nil {
		t.Fatalf("expected degrade, not failure: %v", err)
	}
	res := out.(RerankerResult)
	if len(res.Results) != 2 {
		t.Fatalf("expected truncated passthrough of 2, got %d", len(res.Results))
	}
}

func TestReranker_CrossEncoderConfiguredWithoutScorerFallsBackToRRF(t *testing.T) {
	t.Parallel()
	h := NewReranker(nil, nil)
	out, err := h.Execute(context.Background(), model.Config{"query": "q", "kind": "cross_encoder"}, retrievalInputs(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := out.(RerankerResult)
	if len(res.Results) != 3 {
		t.Fatalf("expected all 3 candidates, got %d", len(res.Results))
	}
}
