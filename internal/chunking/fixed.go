package chunking

import (
	"fmt"
	"unicode/utf8"

	"chunkscope/internal/model"
)

// splitFixed slides a window of width ChunkSize with step
// ChunkSize-Overlap. Overlap must be strictly less than ChunkSize.
func splitFixed(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.ChunkSize <= 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "fixed: chunkSize must be > 0", nil)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, model.NewError(model.ErrInvalidConfig, fmt.Sprintf("fixed: overlap (%d) must be >= 0 and < chunkSize (%d)", cfg.Overlap, cfg.ChunkSize), nil)
	}
	if text == "" {
		return nil, nil
	}

	// byte offset of the start of each rune, plus a sentinel for len(text).
	runeStarts := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		runeStarts = append(runeStarts, i)
	}
	runeStarts = append(runeStarts, len(text))

	step := cfg.ChunkSize - cfg.Overlap
	var spans []Span
	for start := 0; start < len(runeStarts)-1; start += step {
		end := start + cfg.ChunkSize
		if end >= len(runeStarts) {
			end = len(runeStarts) - 1
		}
		if end <= start {
			break
		}
		sb, eb := runeStarts[start], runeStarts[end]
		spans = append(spans, Span{Text: text[sb:eb], StartChar: sb, EndChar: eb})
		if end == len(runeStarts)-1 {
			break
		}
	}
	return reindex(spans), nil
}
