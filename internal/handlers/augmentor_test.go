package handlers

import (
	"context"
	"errors"
	"testing"

	"chunkscope/internal/model"
	"chunkscope/internal/registry"
)

type stubAugmentor struct {
	variants []string
	text     string
	err      error
}

func (s stubAugmentor) MultiQuery(ctx context.Context, query string, n int) ([]string, error) {
	return s.variants, s.err
}

func (s stubAugmentor) HyDE(ctx context.Context, query string) (string, error) {
	return s.text, s.err
}

func (s stubAugmentor) Expansion(ctx context.Context, query string) (string, error) {
	return s.text, s.err
}

func TestAugmentor_MultiQueryDefault(t *testing.T) {
	t.Parallel()
	h := NewAugmentor(stubAugmentor{variants: []string{"a", "b", "c"}})
	out, err := h.Execute(context.Background(), model.Config{"query": "original"}, registry.Inputs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := out.(AugmentorResult)
	if res.Operation != "multi_query" || len(res.Variants) != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAugmentor_HyDE(t *testing.T) {
	t.Parallel()
	h := NewAugmentor(stubAugmentor{text: "hypothetical document"})
	out, err := h.Execute(context.Background(), model.Config{"query": "q", "operation": "hyde"}, registry.Inputs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := out.(AugmentorResult)
	if res.Text != "hypothetical document" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAugmentor_QueryFromUpstream(t *testing.T) {
	t.Parallel()
	h := NewAugmentor(stubAugmentor{text: "expanded"})
	inputs := registry.Inputs{"upstream": queryCarrier{Query: "from upstream"}}
	out, err := h.Execute(context.Background(), model.Config{"operation": "expansion"}, inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := out.(AugmentorResult)
	if res.Query != "from upstream" {
		t.Fatalf("expected query pulled from upstream, got %q", res.Query)
	}
}

func TestAugmentor_MissingQuery(t *testing.T) {
	t.Parallel()
	h := NewAugmentor(stubAugmentor{})
	_, err := h.Execute(context.Background(), model.Config{}, registry.Inputs{})
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrMissingInput {
		t.Fatalf("expected MissingInput, got %v", err)
	}
}

func TestAugmentor_UnknownOperation(t *testing.T) {
	t.Parallel()
	h := NewAugmentor(stubAugmentor{})
	_, err := h.Execute(context.Background(), model.Config{"query": "q", "operation": "bogus"}, registry.Inputs{})
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrInvalidConfig {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}
