package pipeline

import "sort"

// Rewrite reconstructs a pending line by substituting each span's translation
// into the line buffer. Spans are processed in descending start order: a
// replacement never touches text before its own offset, so the offsets of
// still-unprocessed earlier spans stay valid while the buffer mutates.
// Spans with no entry in results keep their original text.
func Rewrite(p PendingLine, results map[Key]string) string {
	spans := make([]int, len(p.Spans))
	for i := range spans {
		spans[i] = i
	}
	sort.Slice(spans, func(a, b int) bool {
		return p.Spans[spans[a]].Start > p.Spans[spans[b]].Start
	})

	line := p.Text
	for _, i := range spans {
		s := p.Spans[i]
		translated, ok := results[Key{Line: p.Number, Text: s.Text}]
		if !ok {
			translated = s.Text
		}
		line = line[:s.Start] + `"` + translated + `"` + line[s.End:]
	}
	return line
}
