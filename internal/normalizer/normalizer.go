// Package normalizer converts raw recognized text into a canonical
// comparable form shared by the catalog and the matching engine.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowers text into its canonical comparable form: diacritics are
// stripped ("ç" -> "c", "ã" -> "a"), everything is lowercased, any character
// outside [a-z0-9] and whitespace becomes a space, and whitespace runs are
// collapsed to a single space with the ends trimmed.
//
// Normalize is total and idempotent: it never fails, and
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	flat := stripDiacritics(text)
	flat = strings.ToLower(flat)

	var b strings.Builder
	b.Grow(len(flat))
	for _, r := range flat {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripDiacritics transliterates accented letters to their base Latin form.
// Runes the decomposition cannot handle are passed through and filtered by
// the caller's character whitelist.
func stripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	flat, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return flat
}
