package common

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	ExcerptMaxChars = 300
	excerptMarker   = "..."
	wordsPerMinute  = 200
)

// DeriveExcerpt returns excerpt when it is set, otherwise a preview cut from content
// that never exceeds ExcerptMaxChars characters.
func DeriveExcerpt(content, excerpt string) string {
	if excerpt != "" {
		return excerpt
	}

	if utf8.RuneCountInString(content) <= ExcerptMaxChars {
		return content
	}

	cut := ExcerptMaxChars - utf8.RuneCountInString(excerptMarker)
	return string([]rune(content)[:cut]) + excerptMarker
}

// ReadingTime estimates minutes to read content at 200 words per minute, never less than one.
// Halves round to even.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.RoundToEven(float64(words) / wordsPerMinute))

	return max(1, minutes)
}
