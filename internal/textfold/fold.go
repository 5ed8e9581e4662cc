// Package textfold removes diacritics for accent-insensitive matching.
package textfold

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Accented and Plain are parallel rune lists usable with SQL translate().
const (
	Accented = "áàâãäéèêëíìîïóòôõöúùûüçñÁÀÂÃÄÉÈÊËÍÌÎÏÓÒÔÕÖÚÙÛÜÇÑ"
	Plain    = "aaaaaeeeeiiiiooooouuuucnAAAAAEEEEIIIIOOOOOUUUUCN"
)

// Fold lower-cases s and strips combining marks: "São João" -> "sao joao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

var classes = map[rune]string{
	'a': "aáàâãä",
	'e': "eéèêë",
	'i': "iíìîï",
	'o': "oóòôõö",
	'u': "uúùûü",
	'c': "cç",
	'n': "nñ",
}

// Pattern builds a case-insensitive regular expression matching s with or
// without diacritics.
func Pattern(s string) string {
	var b strings.Builder
	b.WriteString("(?i)")
	for _, r := range Fold(s) {
		if class, ok := classes[r]; ok {
			b.WriteString("[" + class + "]")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return b.String()
}

// FirstWord returns the first whitespace-separated word of s.
func FirstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
