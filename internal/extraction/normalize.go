package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

var reHorizontalSpace = regexp.MustCompile(`[ \t\x{00A0}]+`)

// NormalizeText puts document text into the canonical form the rules are
// written against: line breaks preserved, other control characters dropped,
// runs of spaces/tabs/NBSP collapsed to one space, trailing blanks trimmed.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\f' || r == '\v':
			return '\n'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = reHorizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// pickFirstNonEmptyLine returns the first line of block that is non-empty
// after normalization.
func pickFirstNonEmptyLine(block string) (string, bool) {
	for _, line := range strings.Split(block, "\n") {
		if l := NormalizeText(line); l != "" {
			return l, true
		}
	}
	return "", false
}
