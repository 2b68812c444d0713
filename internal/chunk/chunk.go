// Package chunk splits long texts into message-sized pieces.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// DefaultLimit keeps chunks comfortably below Telegram's 4096 character cap.
const DefaultLimit = 3500

// Split packs whole lines greedily into chunks of at most limit runes.
// Lines keep their trailing newline, so joining the chunks yields text.
// A single line longer than limit becomes a chunk of its own.
// The result always has at least one element.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var chunks []string
	var buf strings.Builder
	count := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line)
		if count+n > limit && buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			count = 0
		}
		buf.WriteString(line)
		count += n
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// Truncate cuts text to at most limit runes, including marker, which is
// appended only when something was cut.
func Truncate(text string, limit int, marker string) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	keep := limit - utf8.RuneCountInString(marker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:keep]), " \n") + marker
}
