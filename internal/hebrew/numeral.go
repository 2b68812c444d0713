// Package hebrew renders Hebrew numerals and normalizes marked-up Hebrew text.
package hebrew

import (
	"strconv"
	"strings"
)

var (
	units    = []string{"", "א", "ב", "ג", "ד", "ה", "ו", "ז", "ח", "ט"}
	tens     = []string{"", "י", "כ", "ל", "מ", "נ", "ס", "ע", "פ", "צ"}
	hundreds = []string{"", "ק", "ר", "ש", "ת"}
)

// Numeral renders n as a Hebrew-letter numeral, e.g. 23 -> "כג".
// A remainder of 15 or 16 is written "טו"/"טז" so the letters never spell
// a divine name. Values of 500 and above repeat ת for every full 400.
// Non-positive values fall back to their decimal form.
func Numeral(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}

	var b strings.Builder
	h := n / 100
	for h > 4 {
		b.WriteString(hundreds[4])
		h -= 4
	}
	b.WriteString(hundreds[h])

	rest := n % 100
	switch rest {
	case 15:
		b.WriteString("טו")
		return b.String()
	case 16:
		b.WriteString("טז")
		return b.String()
	}
	b.WriteString(tens[rest/10])
	b.WriteString(units[rest%10])
	return b.String()
}
