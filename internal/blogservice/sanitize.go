package blogservice

import "regexp"

var scriptTagRX = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)

func sanitizeMarkdown(markdown string) string {
	return scriptTagRX.ReplaceAllString(markdown, "")
}
