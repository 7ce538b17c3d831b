package validators

import (
	"strings"
	"unicode"
)

// SanitizeString normalizes free text that ends up on tickets, PDFs and
// spreadsheet cells: control characters are dropped, runs of whitespace
// become one space, and the result is capped at maxLen runes (0 means no cap).
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r):
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	out := b.String()
	if maxLen <= 0 {
		return out
	}
	if runes := []rune(out); len(runes) > maxLen {
		return strings.TrimRight(string(runes[:maxLen]), " ")
	}
	return out
}
