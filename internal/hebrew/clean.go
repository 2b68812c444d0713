package hebrew

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
	// Cantillation marks plus meteg (U+05BD) and rafe (U+05BF).
	cantillation = regexp.MustCompile(`[\x{0591}-\x{05AF}\x{05BD}\x{05BF}]`)
	spaceRun     = regexp.MustCompile(`[ \t]+`)

	punctuation = strings.NewReplacer(
		"\u05C0", "",  // paseq
		"\u05BE", " ", // maqaf
		"|", "",
	)
	specialSpaces = strings.NewReplacer(
		"\u00A0", " ",
		"\u2009", " ",
		"\u200A", " ",
		"\u202F", " ",
	)
	newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Clean turns a marked-up verse from the text service into plain text.
// The steps run in a fixed order; later ones assume tags are already gone.
func Clean(raw string) string {
	text := lineBreakTag.ReplaceAllString(raw, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = cantillation.ReplaceAllString(text, "")
	text = punctuation.Replace(text)
	text = specialSpaces.Replace(text)
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(newlines.Replace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// VerseLines cleans each verse and prefixes it with its Hebrew numeral,
// one verse per line.
func VerseLines(verses []string) string {
	return VerseLinesFrom(1, verses)
}

// VerseLinesFrom is VerseLines with numbering starting at first.
func VerseLinesFrom(first int, verses []string) string {
	lines := make([]string, 0, len(verses))
	for i, v := range verses {
		lines = append(lines, Numeral(first+i)+". "+Clean(v))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
