package chunking

import (
	"regexp"

	"chunkscope/internal/model"
)

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+.+$`)

// splitHeading emits one chunk per section, where a section runs from a
// heading line (matching ^#{1,6}\s+...$) to the next heading or
// end-of-text. Text preceding the first heading forms an implicit
// leading chunk with level 0. Metadata carries heading text and level.
func splitHeading(text string, cfg Config) ([]Span, *model.Error) {
	if text == "" {
		return nil, nil
	}
	locs := headingRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return reindex([]Span{{Text: text, StartChar: 0, EndChar: len(text), Metadata: map[string]any{"level": 0}}}), nil
	}

	var spans []Span
	if locs[0][0] > 0 {
		lead := text[0:locs[0][0]]
		if trimmedNonEmpty(lead) {
			s, e := trimRange(text, 0, locs[0][0])
			spans = append(spans, Span{Text: text[s:e], StartChar: s, EndChar: e, Metadata: map[string]any{"level": 0}})
		}
	}

	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		s, e := trimRange(text, start, end)
		headingLine := text[loc[0]:loc[1]]
		level := 0
		for level < len(headingLine) && headingLine[level] == '#' {
			level++
		}
		spans = append(spans, Span{
			Text:      text[s:e],
			StartChar: s,
			EndChar:   e,
			Metadata:  map[string]any{"heading": headingLine, "level": level},
		})
	}
	return reindex(spans), nil
}

func trimmedNonEmpty(s string) bool {
	start, end := trimRange(s, 0, len(s))
	return start < end
}
