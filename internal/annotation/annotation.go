// Package annotation removes inline citation markers from assistant replies.
package annotation

import (
	"sort"
	"strings"
)

// Span is a half-open [Start, End) range of character offsets. Offsets count
// runes, matching how the assistant service reports annotation positions.
type Span struct {
	Start int
	End   int
}

// Strip returns text with every span removed and surrounding whitespace
// trimmed. Spans are removed in descending Start order so that cutting one
// never shifts the offsets of spans still to be processed. Spans are expected
// to lie within text; out-of-range offsets are clamped.
func Strip(text string, spans []Span) string {
	if text == "" {
		return ""
	}

	if len(spans) == 0 {
		return strings.TrimSpace(text)
	}

	ordered := make([]Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	runes := []rune(text)
	for _, s := range ordered {
		start, end := clamp(s.Start, len(runes)), clamp(s.End, len(runes))
		if end <= start {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}

	return strings.TrimSpace(string(runes))
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
