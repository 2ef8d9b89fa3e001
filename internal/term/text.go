package term

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeText applies the normalization pipeline: NFC, optional case folding,
// optional whitespace collapsing, optional punctuation stripping (which
// re-triggers whitespace collapsing since stripped runs can introduce new
// adjacent spaces).
func normalizeText(s string, opts Options) string {
	s = norm.NFC.String(s)
	if !opts.CaseSensitive {
		s = strings.ToLower(s)
	}
	if opts.NormalizeWhitespace {
		s = collapseWhitespace(s)
	}
	if opts.StripPunctuation {
		s = stripPunctuation(s)
		if opts.NormalizeWhitespace {
			s = collapseWhitespace(s)
		}
	}
	return s
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// stripPunctuation removes everything that is not a letter, digit,
// whitespace, or underscore, Unicode-aware.
func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
