package chunking

import (
	"strings"
	"testing"
)

func assertOffsets(t *testing.T, text string, spans []Span) {
	t.Helper()
	for _, s := range spans {
		if s.StartChar < 0 || s.StartChar > s.EndChar || s.EndChar > len(text) {
			t.Fatalf("invalid offsets [%d:%d] for text of length %d", s.StartChar, s.EndChar, len(text))
		}
		if !strings.Contains(text[s.StartChar:s.EndChar], strings.TrimSpace(s.Text)) {
			t.Fatalf("span text %q not found within text[%d:%d]=%q", s.Text, s.StartChar, s.EndChar, text[s.StartChar:s.EndChar])
		}
	}
}

func TestSplit_UnknownStrategy(t *testing.T) {
	t.Parallel()
	_, err := Split("hello", Config{Strategy: "nonsense"})
	if err == nil || err.Kind != "InvalidConfig" {
		t.Fatalf("expected InvalidConfig error, got %v", err)
	}
}

func TestSplitFixed_Basic(t *testing.T) {
	t.Parallel()
	text := "abcdefghij"
	spans, err := Split(text, Config{Strategy: StrategyFixed, ChunkSize: 4, Overlap: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"abcd", "efgh", "ij"}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans, want %d: %+v", len(spans), len(want), spans)
	}
	for i, w := range want {
		if spans[i].Text != w {
			t.Fatalf("span %d = %q, want %q", i, spans[i].Text, w)
		}
	}
	assertOffsets(t, text, spans)
}

func TestSplitFixed_Overlap(t *testing.T) {
	t.Parallel()
	text := "abcdefghij"
	spans, err := Split(text, Config{Strategy: StrategyFixed, ChunkSize: 4, Overlap: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"abcd", "cdef", "efgh", "ghij"}
	for i, w := range want {
		if i >= len(spans) || spans[i].Text != w {
			t.Fatalf("span %d = %v, want %q", i, spans, w)
		}
	}
	assertOffsets(t, text, spans)
}

func TestSplitFixed_OverlapMustBeLessThanChunkSize(t *testing.T) {
	t.Parallel()
	_, err := Split("abc", Config{Strategy: StrategyFixed, ChunkSize: 4, Overlap: 4})
	if err == nil || err.Kind != "InvalidConfig" {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestSplitRecursive_ShortText(t *testing.T) {
	t.Parallel()
	text := "AI is hot. Cooking is fun."
	spans, err := Split(text, Config{Strategy: StrategyRecursive, ChunkSize: 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %+v", len(spans), spans)
	}
	assertOffsets(t, text, spans)
}

func TestSplitRecursive_RespectsChunkSize(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("word ", 100)
	spans, err := Split(text, Config{Strategy: StrategyRecursive, ChunkSize: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range spans {
		if measureRunes(s.Text) > 20 {
			t.Fatalf("span exceeds chunkSize: %q (%d runes)", s.Text, measureRunes(s.Text))
		}
	}
	assertOffsets(t, text, spans)
}

func TestSplitParagraph(t *testing.T) {
	t.Parallel()
	text := "Para one.\n\nPara two.\n\nPara three is a fair bit longer than the others."
	spans, err := Split(text, Config{Strategy: StrategyParagraph, ChunkSize: 15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d: %+v", len(spans), spans)
	}
	assertOffsets(t, text, spans)
}

func TestSplitSentence_OverlapCarriesTail(t *testing.T) {
	t.Parallel()
	text := "One sentence here. Another one follows. And a third caps it off."
	spans, err := Split(text, Config{Strategy: StrategySentence, ChunkSize: 25, Overlap: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d: %+v", len(spans), spans)
	}
	assertOffsets(t, text, spans)
}

func TestSplitSentenceWindow(t *testing.T) {
	t.Parallel()
	text := "One. Two. Three. Four. Five."
	spans, err := Split(text, Config{Strategy: StrategySentenceWindow, WindowSize: 2, Overlap: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 4 {
		t.Fatalf("expected 4 windows, got %d: %+v", len(spans), spans)
	}
	assertOffsets(t, text, spans)
}

func TestSplitHeading(t *testing.T) {
	t.Parallel()
	text := "intro text\n\n# Title\nbody one\n\n## Sub\nbody two"
	spans, err := Split(text, Config{Strategy: StrategyHeading})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 3 {
		t.Fatalf("expected 3 sections (leading + 2 headings), got %d: %+v", len(spans), spans)
	}
	if spans[0].Metadata["level"] != 0 {
		t.Fatalf("expected leading chunk level 0, got %v", spans[0].Metadata)
	}
	if spans[1].Metadata["level"] != 1 {
		t.Fatalf("expected first heading level 1, got %v", spans[1].Metadata)
	}
	if spans[2].Metadata["level"] != 2 {
		t.Fatalf("expected second heading level 2, got %v", spans[2].Metadata)
	}
	assertOffsets(t, text, spans)
}

func TestSplitCodeAware(t *testing.T) {
	t.Parallel()
	text := "before code\n\n```go\nfunc main() {}\n```\n\nafter code"
	spans, err := Split(text, Config{Strategy: StrategyCodeAware, ChunkSize: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawCode bool
	for _, s := range spans {
		if s.Metadata["type"] == "code" {
			sawCode = true
			if !strings.Contains(s.Text, "func main") {
				t.Fatalf("code chunk missing code text: %q", s.Text)
			}
		}
	}
	if !sawCode {
		t.Fatalf("expected a code chunk, got %+v", spans)
	}
	assertOffsets(t, text, spans)
}

type stubEmbedder struct {
	vecs map[string][]float32
}

func (s stubEmbedder) Embed(text string) ([]float32, error) {
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestSplitSemantic_SingleSentence(t *testing.T) {
	t.Parallel()
	spans, err := Split("Only one sentence here.", Config{
		Strategy: StrategySemantic,
		Embedder: stubEmbedder{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected exactly one chunk for single-sentence text, got %d: %+v", len(spans), spans)
	}
}

func TestSplitSemantic_SplitsAtTopicChange(t *testing.T) {
	t.Parallel()
	text := "Cats are nice pets. Cats like to nap. Stock markets rose today. Interest rates fell sharply."
	embedder := stubEmbedder{vecs: map[string][]float32{
		"Cats are nice pets.":           {1, 0},
		"Cats like to nap.":             {0.9, 0.1},
		"Stock markets rose today.":     {0, 1},
		"Interest rates fell sharply.":  {0.1, 0.9},
	}}
	spans, err := Split(text, Config{
		Strategy:     StrategySemantic,
		WindowSize:   1,
		Threshold:    0.5,
		MinChunkSize: 1,
		Embedder:     embedder,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) < 2 {
		t.Fatalf("expected at least 2 chunks across the topic change, got %d: %+v", len(spans), spans)
	}
	assertOffsets(t, text, spans)
}

func TestSplitSemantic_RequiresEmbedder(t *testing.T) {
	t.Parallel()
	_, err := Split("one. two.", Config{Strategy: StrategySemantic})
	if err == nil || err.Kind != "InvalidConfig" {
		t.Fatalf("expected InvalidConfig without embedder, got %v", err)
	}
}
