package writer

import (
	"fmt"
	"regexp"
	"strings"
)

var reWhitespace = regexp.MustCompile(`\s+`)

func line(n int) string {
	if n == 1 {
		return fmt.Sprintf("%d line", n)
	}
	return fmt.Sprintf("%d lines", n)
}

// FirstLine summarizes multi-line text, such as an error message, as its
// first line in backticks plus a count of the lines left out.
func FirstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	first := reWhitespace.ReplaceAllString(strings.TrimSpace(lines[0]), " ")
	if r := []rune(first); len(r) > 50 {
		first = string(r[:49]) + "…"
	}
	if len(lines) > 1 {
		return fmt.Sprintf("`%s` (+%s)", first, line(len(lines)-1))
	}
	return fmt.Sprintf("`%s`", first)
}
