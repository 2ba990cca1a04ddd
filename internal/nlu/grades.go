package nlu

import (
	"fmt"
	"regexp"
)

// gradePattern matches SAE viscosity grades written as 5w40, 5W-40, 5 w 40, 10w-30...
var gradePattern = regexp.MustCompile(`(?i)\b(\d{1,2})[\s-]*w[\s-]*(\d{2})\b`)

// ExtractGrades returns the canonical grades ("5w40") found in text, each once,
// in order of first appearance.
func ExtractGrades(text string) []string {
	matches := gradePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		g := m[1] + "w" + m[2]
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// HasGrade reports whether text contains a viscosity grade.
func HasGrade(text string) bool {
	return gradePattern.MatchString(text)
}

// removeGrades blanks every grade span so the digits are not seen again by
// the word splitter or the price parser.
func removeGrades(text string) string {
	return gradePattern.ReplaceAllString(text, " ")
}

// GradeVariants lists the literal spellings a canonical grade may take in
// catalog text. Non-canonical input is returned unchanged as a single variant.
func GradeVariants(grade string) []string {
	m := gradePattern.FindStringSubmatch(grade)
	if m == nil {
		return []string{grade}
	}
	a, b := m[1], m[2]
	return []string{
		fmt.Sprintf("%sw%s", a, b),
		fmt.Sprintf("%sw-%s", a, b),
		fmt.Sprintf("%s w %s", a, b),
		fmt.Sprintf("%s w-%s", a, b),
		fmt.Sprintf("%sw %s", a, b),
	}
}

