package plate

import (
	"strings"
	"unicode"
)

// Normalize removes every whitespace rune and upper-cases the rest.
// Other characters are kept as-is, so noisy OCR output fails Parse instead of
// being silently repaired.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
