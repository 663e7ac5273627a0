package augment

import (
	"context"
	"testing"

	"chunkscope/internal/ports"
)

type stubLLM struct {
	resp string
	err  error
	n    int
}

func (s *stubLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ports.CompletionOptions) (string, error) {
	s.n++
	return s.resp, s.err
}

func TestAugmentor_MultiQuery_NoLLMDegradesToOriginal(t *testing.T) {
	t.Parallel()
	a := New(nil)
	out, err := a.MultiQuery(context.Background(), "cats", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(out))
	}
	for _, v := range out {
		if v != "cats" {
			t.Fatalf("expected every degraded variant to equal the original query, got %q", v)
		}
	}
}

func TestAugmentor_MultiQuery_CachesAcrossCalls(t *testing.T) {
	t.Parallel()
	llm := &stubLLM{resp: `["cats", "felines", "kittens"]`}
	a := New(llm)

	first, err := a.MultiQuery(context.Background(), "cats", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := a.MultiQuery(context.Background(), "cats", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.n != 1 {
		t.Fatalf("expected the LLM to be called once, got %d calls", llm.n)
	}
	if len(first) != len(second) {
		t.Fatalf("expected cached result to match first call: %v vs %v", first, second)
	}
}

func TestAugmentor_HyDE_DegradesOnLLMFailure(t *testing.T) {
	t.Parallel()
	llm := &stubLLM{err: context.DeadlineExceeded}
	a := New(llm)

	out, err := a.HyDE(context.Background(), "what is a cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "what is a cat" {
		t.Fatalf("expected degrade to original query, got %q", out)
	}
}

func TestAugmentor_Expansion_AppendsLLMOutput(t *testing.T) {
	t.Parallel()
	llm := &stubLLM{resp: "feline kitten"}
	a := New(llm)

	out, err := a.Expansion(context.Background(), "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "cat feline kitten" {
		t.Fatalf("unexpected expansion: %q", out)
	}
}

func TestAugmentor_NewWithCache_SharesProvidedBackend(t *testing.T) {
	t.Parallel()
	cache := newMemoryCache()
	llm := &stubLLM{resp: "placeholder answer"}
	a := NewWithCache(llm, cache)

	if _, err := a.HyDE(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.Get(context.Background(), cacheKey("hyde", "q", 0)); !ok {
		t.Fatalf("expected HyDE's result to be written through to the provided cache")
	}
}
