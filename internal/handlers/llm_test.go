package handlers

import (
	"context"
	"errors"
	"testing"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
)

type stubLLM struct {
	response string
	err      error
	lastUser string
}

func (s *stubLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ports.CompletionOptions) (string, error) {
	s.lastUser = userPrompt
	return s.response, s.err
}

func TestLLM_NilPortIsInvalidConfig(t *testing.T) {
	t.Parallel()
	h := NewLLM(nil)
	_, err := h.Execute(context.Background(), model.Config{"prompt": "hi"}, registry.Inputs{})
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrInvalidConfig {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestLLM_PrecedenceFullTextBeatsResults(t *testing.T) {
	t.Parallel()
	llm := &stubLLM{response: "ok"}
	h := NewLLM(llm)
	inputs := registry.Inputs{
		"upstream": promptCarrier{
			FullText: "the real context",
			Results:  []model.RetrievalResult{{Chunk: model.Chunk{Text: "ignored"}}},
		},
	}
	out, err := h.Execute(context.Background(), model.Config{}, inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.lastUser != "the real context" {
		t.Fatalf("expected full_text to win precedence, got %q", llm.lastUser)
	}
	res := out.(LLMResult)
	if res.Response != "ok" {
		t.Fatalf("expected response passthrough, got %q", res.Response)
	}
}

func TestLLM_FallsBackToTopNResults(t *testing.T) {
	t.Parallel()
	llm := &stubLLM{response: "ok"}
	h := NewLLM(llm)
	inputs := registry.Inputs{
		"upstream": promptCarrier{
			Results: []model.RetrievalResult{
				{Chunk: model.Chunk{Text: "first"}},
				{Chunk: model.Chunk{Text: "second"}},
				{Chunk: model.Chunk{Text: "third"}},
			},
		},
	}
	_, err := h.Execute(context.Background(), model.Config{"top_n": 2}, inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.lastUser == "" {
		t.Fatalf("expected a composed prompt from the top results")
	}
}

func TestLLM_EmptyPromptIsMissingInput(t *testing.T) {
	t.Parallel()
	h := NewLLM(&stubLLM{})
	_, err := h.Execute(context.Background(), model.Config{}, registry.Inputs{})
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrMissingInput {
		t.Fatalf("expected MissingInput, got %v", err)
	}
}

func TestLLM_ExternalFailurePropagates(t *testing.T) {
	t.Parallel()
	h := NewLLM(&stubLLM{err: errors.New("rate limited")})
	_, err := h.Execute(context.Background(), model.Config{"prompt": "hi"}, registry.Inputs{})
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Kind != model.ErrExternal {
		t.Fatalf("expected External, got %v", err)
	}
}
