package tokenize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// IsCJK reports whether r falls in one of the CJK, Hiragana, Katakana, or
// Hangul ranges. Each such rune is treated as its own word, since there is
// no dictionary-based word breaker for these scripts in the toolchain.
func IsCJK(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Unified Ideographs Extension A
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul Syllables
		return true
	case r >= 0x20000 && r <= 0x2A6DF: // CJK Unified Ideographs Extension B
		return true
	default:
		return false
	}
}

// Normalize applies Unicode NFC normalization and trims surrounding
// whitespace, without folding case (callers that need case-insensitive
// comparison should also call Words or cases.Fold directly).
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Words splits s into case-folded word tokens: CJK runes become
// single-character tokens, Latin/digit runs stay intact, and diacritics
// are preserved (no stripping, matching the spec's policy for a
// Chinese+English corpus).
func Words(s string) []string {
	var spaced strings.Builder
	for _, r := range Normalize(s) {
		if IsCJK(r) {
			spaced.WriteRune(' ')
			spaced.WriteRune(r)
			spaced.WriteRune(' ')
		} else {
			spaced.WriteRune(r)
		}
	}

	folded := folder.String(spaced.String())

	return strings.FieldsFunc(folded, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}
