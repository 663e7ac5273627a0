package chunking

import (
	"regexp"
	"unicode/utf8"
)

// offsetSpan is a substring of some source text paired with its byte
// offsets into that text — the shared currency every strategy splits
// text into before turning spans into Spans.
type offsetSpan struct {
	text  string
	start int
	end   int
}

var sentenceRe = regexp.MustCompile(`(?s)[^.!?]+[.!?]+|[^.!?]+$`)

// sentencesOf segments text into sentences with their byte offsets,
// skipping pieces that are blank once trimmed. Grounded on the naive
// punctuation-run regex used by the teacher's boundary splitter, extended
// to carry offsets rather than discard them.
func sentencesOf(text string) []offsetSpan {
	idxs := sentenceRe.FindAllStringIndex(text, -1)
	out := make([]offsetSpan, 0, len(idxs))
	for _, loc := range idxs {
		start, end := trimRange(text, loc[0], loc[1])
		if start >= end {
			continue
		}
		out = append(out, offsetSpan{text: text[start:end], start: start, end: end})
	}
	return out
}

var blankLineRe = regexp.MustCompile(`\n[ \t]*\n[ \t\n]*`)

// paragraphsOf segments text on blank-line boundaries, with offsets.
func paragraphsOf(text string) []offsetSpan {
	var out []offsetSpan
	pos := 0
	locs := blankLineRe.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		start, end := trimRange(text, pos, loc[0])
		if start < end {
			out = append(out, offsetSpan{text: text[start:end], start: start, end: end})
		}
		pos = loc[1]
	}
	start, end := trimRange(text, pos, len(text))
	if start < end {
		out = append(out, offsetSpan{text: text[start:end], start: start, end: end})
	}
	return out
}

// trimRange narrows [start,end) to exclude leading/trailing whitespace,
// preserving byte offsets into the original string.
func trimRange(text string, start, end int) (int, int) {
	for start < end {
		r, w := utf8.DecodeRuneInString(text[start:end])
		if !isSpace(r) {
			break
		}
		start += w
	}
	for end > start {
		r, w := utf8.DecodeLastRuneInString(text[start:end])
		if !isSpace(r) {
			break
		}
		end -= w
	}
	return start, end
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// measureRunes returns the rune count of a string, the unit C1 sizes
// chunks by throughout (character offsets are byte offsets; size limits
// are rune counts, matching how a user specifies chunkSize).
func measureRunes(s string) int {
	return utf8.RuneCountInString(s)
}

// joinSpans concatenates a run of offsetSpans using the original source
// text, trimming surrounding whitespace from the result while keeping
// start/end in sync with text so the returned text is always exactly
// text[start:end] — callers that recurse into .text can trust
// baseOffset+start as that substring's position in the document.
func joinSpans(text string, spans []offsetSpan) offsetSpan {
	if len(spans) == 0 {
		return offsetSpan{}
	}
	start, end := trimRange(text, spans[0].start, spans[len(spans)-1].end)
	return offsetSpan{text: text[start:end], start: start, end: end}
}
