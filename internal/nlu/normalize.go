// Package nlu turns free-text shopper messages into structured intents.
//
// Everything in this package is pure: no I/O, no shared mutable state. A
// Classifier may be used from any number of goroutines.
package nlu

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordPattern  = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)
	spaceRunPattern = regexp.MustCompile(`\s+`)
)

// FoldAccents decomposes text and drops combining marks ("bujía" -> "bujia").
// Punctuation and case are preserved.
func FoldAccents(text string) string {
	// transform.Chain keeps state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Normalize folds accents, replaces anything that is not a letter, digit,
// whitespace or hyphen with a space, collapses whitespace, trims and lowercases.
func Normalize(text string) string {
	out := FoldAccents(text)
	out = nonWordPattern.ReplaceAllString(out, " ")
	out = spaceRunPattern.ReplaceAllString(out, " ")
	return strings.ToLower(strings.TrimSpace(out))
}

// fold lowercases and strips accents but keeps punctuation, for extractors
// that need symbols such as "<", "@" or thousands separators.
func fold(text string) string {
	return strings.ToLower(FoldAccents(text))
}
