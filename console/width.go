package console

import (
	"unicode"

	"golang.org/x/text/width"
)

// RuneWidth returns the number of terminal cells r occupies: 2 for East Asian
// wide and fullwidth characters, 0 for control characters, 1 otherwise.
func RuneWidth(r rune) int {
	if unicode.IsControl(r) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

// Columns returns the display width of s.
func Columns(s string) int {
	n := 0
	for _, r := range s {
		n += RuneWidth(r)
	}
	return n
}

func runeColumns(rs []rune) int {
	n := 0
	for _, r := range rs {
		n += RuneWidth(r)
	}
	return n
}
