package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// persianFolding maps Persian and Arabic-Indic digits to ASCII and Arabic
// letter variants to their Persian forms.
var persianFolding = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	switch r {
	case 'ي', 'ى':
		return 'ی'
	case 'ك':
		return 'ک'
	case 'ة':
		return 'ه'
	case '٫':
		return '.'
	case '٬':
		return ','
	case '\u200c', '\u00a0', '\t':
		// zero-width non-joiner and non-breaking space read as plain spaces
		return ' '
	}
	return r
})

// directionMarks drops bidi marks and the tatweel used for stretching words.
var directionMarks = runes.Remove(runes.Predicate(func(r rune) bool {
	return r == '\u200e' || r == '\u200f' || r == '\u0640'
}))

// NormalizeText brings ad text into the canonical form every rule is written
// against: NFKC, ASCII digits, Persian letter forms, and single spaces inside
// each line.
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFKC, directionMarks, persianFolding)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, unicode.IsSpace), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Tokens splits normalized text into lower-cased letter/digit runs of at least
// two runes.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(NormalizeText(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
