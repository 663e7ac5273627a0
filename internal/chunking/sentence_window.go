package chunking

import "chunkscope/internal/model"

// splitSentenceWindow emits a chunk for every window of WindowSize
// consecutive sentences, stepping by max(1, WindowSize-Overlap).
func splitSentenceWindow(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.WindowSize <= 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "sentence_window: windowSize must be > 0", nil)
	}
	sents := sentencesOf(text)
	if len(sents) == 0 {
		return nil, nil
	}

	step := cfg.WindowSize - cfg.Overlap
	if step < 1 {
		step = 1
	}

	var spans []Span
	for start := 0; start < len(sents); start += step {
		end := start + cfg.WindowSize
		if end > len(sents) {
			end = len(sents)
		}
		if start >= end {
			break
		}
		win := joinSpans(text, sents[start:end])
		if win.text != "" {
			spans = append(spans, Span{Text: win.text, StartChar: win.start, EndChar: win.end})
		}
		if end == len(sents) {
			break
		}
	}
	return reindex(spans), nil
}
