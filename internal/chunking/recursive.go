package chunking

import (
	"strings"
	"unicode/utf8"

	"chunkscope/internal/model"
)

var recursiveSeparators = []string{"\n\n", "\n", ". ", " ", ""}

func splitRecursive(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.ChunkSize <= 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "recursive: chunkSize must be > 0", nil)
	}
	if text == "" {
		return nil, nil
	}
	spans := recurse(text, 0, recursiveSeparators, cfg.ChunkSize)
	return reindex(spans), nil
}

// recurse splits text (whose first byte sits at baseOffset in the
// original document) on the first separator in seps, greedily
// concatenating the resulting pieces up to chunkSize runes per group. A
// group still oversized after greedy concatenation (a single piece
// longer than chunkSize) is recursed into with the remaining separator
// suffix. An empty separator is the base case: a hard per-character
// split, guaranteeing termination.
func recurse(text string, baseOffset int, seps []string, chunkSize int) []Span {
	if len(seps) == 0 || seps[0] == "" {
		return hardSplit(text, baseOffset, chunkSize)
	}
	sep := seps[0]
	rest := seps[1:]

	pieces := splitLiteral(text, sep)
	if len(pieces) == 0 {
		return nil
	}

	var out []Span
	groupStart := 0
	for groupStart < len(pieces) {
		end := groupStart + 1
		for end < len(pieces) {
			candidate := joinSpans(text, pieces[groupStart:end+1])
			if measureRunes(candidate.text) > chunkSize {
				break
			}
			end++
		}
		group := joinSpans(text, pieces[groupStart:end])
		switch {
		case group.text == "":
			// whitespace-only group; drop it.
		case measureRunes(group.text) > chunkSize:
			out = append(out, recurse(group.text, baseOffset+group.start, rest, chunkSize)...)
		default:
			out = append(out, Span{Text: group.text, StartChar: baseOffset + group.start, EndChar: baseOffset + group.end})
		}
		groupStart = end
	}
	return out
}

// splitLiteral splits text on literal occurrences of sep (non-empty),
// returning the pieces between separators with their byte offsets. The
// separator text itself is excluded from each piece but remains present
// in the source, so joinSpans of adjacent pieces still captures it.
func splitLiteral(text, sep string) []offsetSpan {
	if sep == "" {
		return nil
	}
	var out []offsetSpan
	pos := 0
	for {
		idx := strings.Index(text[pos:], sep)
		if idx < 0 {
			out = append(out, offsetSpan{text: text[pos:], start: pos, end: len(text)})
			break
		}
		end := pos + idx
		out = append(out, offsetSpan{text: text[pos:end], start: pos, end: end})
		pos = end + len(sep)
	}
	return out
}

// hardSplit cuts text into exact chunkSize-rune windows with no overlap,
// used when the separator list is exhausted.
func hardSplit(text string, baseOffset int, chunkSize int) []Span {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	runeStarts := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		runeStarts = append(runeStarts, i)
	}
	runeStarts = append(runeStarts, len(text))

	var spans []Span
	for start := 0; start < len(runeStarts)-1; start += chunkSize {
		end := start + chunkSize
		if end >= len(runeStarts) {
			end = len(runeStarts) - 1
		}
		sb, eb := runeStarts[start], runeStarts[end]
		if sb >= eb {
			break
		}
		spans = append(spans, Span{Text: text[sb:eb], StartChar: baseOffset + sb, EndChar: baseOffset + eb})
	}
	return spans
}
