package views

import (
	"strings"
	"unicode/utf8"
)

// sanitizeForTerminal drops runes that break tcell layout or could drive the
// terminal: control characters other than newline and tab, emoji modifiers
// and joiners, and bidi overrides. A thumbs-up with a skin tone renders as a
// plain thumbs-up.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// singleLine flattens s for table cells.
func singleLine(s string) string {
	return strings.Join(strings.Fields(sanitizeForTerminal(s)), " ")
}

func isProblematicRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0):
		return true
	// Skin tone modifiers.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	// Zero width joiner.
	case r == 0x200D:
		return true
	// Bidi embeddings, overrides and isolates.
	case (r >= 0x202A && r <= 0x202E) || (r >= 0x2066 && r <= 0x2069):
		return true
	// Variation selectors and their supplement.
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
