package salon

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe     = regexp.MustCompile(`[^0-9a-zA-Zа-яА-ЯёЁ]+`)
	bracketRe     = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	fragmentSepRe = regexp.MustCompile(`[+/,&]`)
)

// StripMarks decomposes s and drops combining marks ("niño" -> "nino").
func StripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases s, strips diacritics and collapses every run of
// non-alphanumeric characters (Latin and Cyrillic) into a single space.
func Normalize(s string) string {
	s = strings.ToLower(StripMarks(s))
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// StripBrackets removes "[...]" and "(...)" groups.
func StripBrackets(s string) string {
	return strings.TrimSpace(bracketRe.ReplaceAllString(s, " "))
}

// Slugify turns a display name into an identifier made of [a-z0-9_].
// Non-Latin scripts are transliterated; an empty result becomes "item".
func Slugify(s string) string {
	out := strings.ReplaceAll(slug.Make(s), "-", "_")
	out = strings.Trim(out, "_")
	if out == "" {
		return "item"
	}
	return out
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}
