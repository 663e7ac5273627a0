package chunking

import (
	"math"

	"chunkscope/internal/model"
)

// splitSemantic segments into sentences, then splits at "valleys" in the
// adjacent-window cosine similarity curve: gap i (between sentence i and
// i+1) is a candidate boundary when s_i is a local minimum (s_i <= s_i-1
// and s_i <= s_i+1, sentinel 1 outside the valid range), s_i < threshold,
// and the chunk accumulated so far is at least MinChunkSize runes. The
// local-minimum constraint is what stops a split on a downward slope
// before the true topic boundary.
func splitSemantic(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.Embedder == nil {
		return nil, model.NewError(model.ErrInvalidConfig, "semantic: embedder is required", nil)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 1
	}

	sents := sentencesOf(text)
	if len(sents) == 0 {
		return nil, nil
	}
	if len(sents) == 1 {
		return reindex([]Span{{Text: sents[0].text, StartChar: sents[0].start, EndChar: sents[0].end}}), nil
	}

	vecs := make([][]float32, len(sents))
	for i, s := range sents {
		v, err := cfg.Embedder.Embed(s.text)
		if err != nil {
			return nil, model.NewError(model.ErrExternal, "semantic: embedding sentence failed", err)
		}
		vecs[i] = normalize(v)
	}

	n := len(sents)
	sim := make([]float64, n-1) // sim[i] == s_i for gap between sentence i and i+1
	for i := 0; i < n-1; i++ {
		leftStart := i - cfg.WindowSize + 1
		if leftStart < 0 {
			leftStart = 0
		}
		left := mean(vecs[leftStart : i+1])
		rightEnd := i + 1 + cfg.WindowSize
		if rightEnd > n {
			rightEnd = n
		}
		right := mean(vecs[i+1 : rightEnd])
		sim[i] = cosine(left, right)
	}

	sAt := func(i int) float64 {
		if i < 0 || i >= len(sim) {
			return 1
		}
		return sim[i]
	}
	isValley := func(i int) bool {
		return sAt(i) <= sAt(i-1) && sAt(i) <= sAt(i+1)
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}

	var spans []Span
	groupStart := 0
	for i := 0; i < n-1; i++ {
		accLen := measureRunes(text[sents[groupStart].start:sents[i].end])
		if sim[i] < threshold && isValley(i) && accLen >= cfg.MinChunkSize {
			chunk := joinSpans(text, sents[groupStart:i+1])
			spans = append(spans, Span{Text: chunk.text, StartChar: chunk.start, EndChar: chunk.end})
			groupStart = i + 1
		}
	}
	if groupStart < n {
		chunk := joinSpans(text, sents[groupStart:n])
		spans = append(spans, Span{Text: chunk.text, StartChar: chunk.start, EndChar: chunk.end})
	}

	return reindex(spans), nil
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func mean(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i, x := range v {
			out[i] += float64(x)
		}
	}
	result := make([]float32, len(out))
	for i, x := range out {
		result[i] = float32(x / float64(len(vecs)))
	}
	return result
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, x := range b {
		nb += float64(x) * float64(x)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
