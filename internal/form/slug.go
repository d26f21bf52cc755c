package form

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives the canonical field identifier from a label: accents are
// folded to ASCII, the result is lowercased, characters other than letters,
// digits, underscores, hyphens and spaces are dropped, and runs of hyphens
// and spaces collapse to a single underscore.
func Slugify(label string) string {
	// transform.Chain is stateful, build one per call.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// IsSlug reports whether s is already in canonical slug form.
func IsSlug(s string) bool {
	return s != "" && Slugify(s) == s
}
