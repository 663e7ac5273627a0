package chunking

import (
	"unicode/utf8"

	"chunkscope/internal/model"
)

// splitSentence accumulates sentences while the running total stays
// within chunkSize; on overflow it finalizes the current chunk and seeds
// the next one with the trailing Overlap characters of the one just
// closed.
func splitSentence(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.ChunkSize <= 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "sentence: chunkSize must be > 0", nil)
	}
	if cfg.Overlap < 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "sentence: overlap must be >= 0", nil)
	}
	sents := sentencesOf(text)
	if len(sents) == 0 {
		return nil, nil
	}

	var spans []Span
	var acc []offsetSpan
	var carryStart int // byte offset of the carried overlap tail, or -1 if none
	carryStart = -1

	flush := func() {
		if len(acc) == 0 {
			return
		}
		start := acc[0].start
		if carryStart >= 0 {
			start = carryStart
		}
		end := acc[len(acc)-1].end
		txt := text[start:end]
		if txt != "" {
			spans = append(spans, Span{Text: txt, StartChar: start, EndChar: end})
		}
	}

	for _, s := range sents {
		if len(acc) > 0 {
			candStart := acc[0].start
			if carryStart >= 0 {
				candStart = carryStart
			}
			if measureRunes(text[candStart:s.end]) > cfg.ChunkSize {
				flush()
				tailStart := tailByteOffset(text, acc[len(acc)-1].end, cfg.Overlap)
				acc = acc[:0]
				carryStart = -1
				if cfg.Overlap > 0 {
					carryStart = tailStart
				}
			}
		}
		acc = append(acc, s)
	}
	flush()

	return reindex(spans), nil
}

// tailByteOffset returns the byte offset such that text[offset:end]
// contains at most want runes.
func tailByteOffset(text string, end int, want int) int {
	if want <= 0 {
		return end
	}
	n := 0
	i := end
	for i > 0 && n < want {
		_, w := utf8.DecodeLastRuneInString(text[:i])
		i -= w
		n++
	}
	return i
}
