package chunking

import (
	"regexp"

	"chunkscope/internal/model"
)

var fenceRe = regexp.MustCompile("(?m)^```.*$")

// splitCodeAware locates fenced code regions delimited by triple-backtick
// lines, emitting each verbatim as one chunk tagged metadata.type="code".
// Text between code regions is recursed into the recursive prose
// splitter.
func splitCodeAware(text string, cfg Config) ([]Span, *model.Error) {
	if cfg.ChunkSize <= 0 {
		return nil, model.NewError(model.ErrInvalidConfig, "code_aware: chunkSize must be > 0", nil)
	}
	if text == "" {
		return nil, nil
	}

	fences := fenceRe.FindAllStringIndex(text, -1)
	if len(fences) < 2 {
		spans := recurse(text, 0, recursiveSeparators, cfg.ChunkSize)
		return reindex(spans), nil
	}

	var spans []Span
	pos := 0
	i := 0
	for i+1 < len(fences) {
		openStart := fences[i][0]
		closeEnd := fences[i+1][1]

		if openStart > pos {
			prose := text[pos:openStart]
			if trimmedNonEmpty(prose) {
				s, e := trimRange(text, pos, openStart)
				spans = append(spans, recurse(text[s:e], s, recursiveSeparators, cfg.ChunkSize)...)
			}
		}

		codeText := text[openStart:closeEnd]
		spans = append(spans, Span{Text: codeText, StartChar: openStart, EndChar: closeEnd, Metadata: map[string]any{"type": "code"}})

		pos = closeEnd
		i += 2
	}
	if pos < len(text) {
		prose := text[pos:]
		if trimmedNonEmpty(prose) {
			s, e := trimRange(text, pos, len(text))
			spans = append(spans, recurse(text[s:e], s, recursiveSeparators, cfg.ChunkSize)...)
		}
	}

	return reindex(spans), nil
}
