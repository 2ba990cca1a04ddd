package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceRange holds inclusive bounds; nil means unbounded. Min <= Max is not
// enforced.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (p PriceRange) IsZero() bool {
	return p.Min == nil && p.Max == nil
}

const numberExpr = `\d+(?:[.,]\d+)?`

var (
	thousandsPattern = regexp.MustCompile(`(\d)[.,](\d{3})\b`)
	numberPattern    = regexp.MustCompile(numberExpr)
	betweenPattern   = regexp.MustCompile(`\bentre\s*\$?\s*(` + numberExpr + `)\s*(?:y|a|-)\s*\$?\s*(` + numberExpr + `)`)
	upperCuePattern  = regexp.MustCompile(`\b(?:hasta|menor|menores|maximo|max|menos\s+de)\b|<|≤`)
	lowerCuePattern  = regexp.MustCompile(`\b(?:mayor|mayores|desde|minimo|min|mas\s+de)\b|>|≥`)
)

// ParsePriceRange reads a price constraint from raw text. The first matching
// rule wins: "entre X y Y", then an upper-bound cue, then a lower-bound cue.
// Cue rules only look at the first number in the message.
func ParsePriceRange(text string) PriceRange {
	t := removeGrades(fold(text))
	for {
		next := thousandsPattern.ReplaceAllString(t, "$1$2")
		if next == t {
			break
		}
		t = next
	}

	if m := betweenPattern.FindStringSubmatch(t); m != nil {
		a, okA := parseNumber(m[1])
		b, okB := parseNumber(m[2])
		if okA && okB {
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			return PriceRange{Min: &lo, Max: &hi}
		}
	}

	first, ok := firstNumber(t)
	if !ok {
		return PriceRange{}
	}
	if upperCuePattern.MatchString(t) {
		return PriceRange{Max: &first}
	}
	if lowerCuePattern.MatchString(t) {
		return PriceRange{Min: &first}
	}
	return PriceRange{}
}

func firstNumber(text string) (float64, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	return parseNumber(m)
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
