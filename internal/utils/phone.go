package utils

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^[0-9 +()\-]+$`)

// ValidPhone reports whether s only holds digits, spaces, '+', '-' and
// parentheses. The check is intentionally permissive about layout.
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && phonePattern.MatchString(s)
}

// SplitCSV splits a comma separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
