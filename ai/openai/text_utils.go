package openai

import "strings"

// scrubLabel normalizes a model-produced label: strips code fences, quotes,
// trailing punctuation and surrounding whitespace, and collapses the label
// to its first line.
func scrubLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.Trim(s, "\"'`")
	s = strings.TrimRight(s, ".,!?;:")
	return strings.TrimSpace(s)
}
