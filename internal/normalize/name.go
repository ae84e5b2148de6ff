package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName builds the join key used to compare person names across
// sheets: accents removed, upper case, only ASCII letters, digits and single
// spaces kept. Two names denote the same seller iff their keys are equal.
func NormalizeName(s string) string {
	upper := strings.ToUpper(StripAccents(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FoldName trims and upper-cases a name without touching accents.
func FoldName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// StripAccents removes combining marks after canonical decomposition.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
