package nlu

import "strings"

// DetectBrand returns the first vocabulary brand contained in normalized
// text, in its catalog spelling. Matches must sit on word boundaries so that
// "elf" is not found inside "delfin".
func (l *Lexicon) DetectBrand(normalized string) (string, bool) {
	padded := " " + strings.ReplaceAll(normalized, "-", " - ") + " "
	for _, b := range l.Brands {
		needle := " " + strings.ReplaceAll(b.Name, "-", " - ") + " "
		if !strings.Contains(padded, needle) {
			continue
		}
		if b.Canonical != "" {
			return b.Canonical, true
		}
		return b.Name, true
	}
	return "", false
}
