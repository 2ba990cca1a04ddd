package nlu

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxTokens caps the generic search terms kept per message.
	MaxTokens = 8
	// MaxGrades caps the viscosity grades kept per message.
	MaxGrades = 3
)

// Tokens is the tokenizer output: generic search terms and canonical grades
// kept apart so the generic cap can never evict a grade.
type Tokens struct {
	Generic []string `json:"tokens"`
	Grades  []string `json:"grades"`
}

// All returns generic tokens followed by grades.
func (t Tokens) All() []string {
	out := make([]string, 0, len(t.Generic)+len(t.Grades))
	out = append(out, t.Generic...)
	return append(out, t.Grades...)
}

// Tokenize splits normalized text into search terms. Grade spans are pulled
// out first and kept whole; the remaining words lose stop words and
// single-character noise, then gain their synonym families.
func (l *Lexicon) Tokenize(normalized string) Tokens {
	grades := ExtractGrades(normalized)
	if len(grades) > MaxGrades {
		grades = grades[:MaxGrades]
	}

	seen := make(map[string]struct{})
	var generic []string
	for _, word := range strings.Fields(removeGrades(normalized)) {
		word = strings.Trim(word, "-")
		if utf8.RuneCountInString(word) <= 1 || l.IsStopWord(word) {
			continue
		}
		for _, tok := range l.expand(word) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			generic = append(generic, tok)
		}
	}
	if len(generic) > MaxTokens {
		generic = generic[:MaxTokens]
	}

	return Tokens{Generic: generic, Grades: grades}
}

// withoutNumbers drops purely numeric tokens.
func withoutNumbers(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if !isDigits(t) {
			out = append(out, t)
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
