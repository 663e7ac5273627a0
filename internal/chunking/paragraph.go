package chunking

import "chunkscope/internal/model"

// splitParagraph splits on blank-line separators and greedily joins
// successive paragraphs while the running total stays within chunkSize.
// Never overlaps.
func splitParagraph(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.ChunkSize <= 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "paragraph: chunkSize must be > 0", nil)
	}
	paras := paragraphsOf(text)
	if len(paras) == 0 {
		return nil, nil
	}

	var spans []Span
	groupStart := 0
	for groupStart < len(paras) {
		end := groupStart + 1
		for end < len(paras) {
			candidate := joinSpans(text, paras[groupStart:end+1])
			if measureRunes(candidate.text) > cfg.ChunkSize {
				break
			}
			end++
		}
		group := joinSpans(text, paras[groupStart:end])
		if group.text != "" {
			spans = append(spans, Span{Text: group.text, StartChar: group.start, EndChar: group.end})
		}
		groupStart = end
	}
	return reindex(spans), nil
}
