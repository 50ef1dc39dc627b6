package search_provider

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	noContent        = "No content available"
	summaryMaxLength = 300
)

var stripPolicy = bluemonday.StrictPolicy()

// stripHTML removes every tag and decodes entities.
func stripHTML(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// cleanText strips markup, collapses whitespace and truncates to maxLen
// runes, preferring to cut at a sentence end past the halfway point.
func cleanText(s string, maxLen int) string {
	text := strings.Join(strings.Fields(stripHTML(s)), " ")
	if text == "" {
		return noContent
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	truncated := string(runes[:maxLen])
	cut := strings.LastIndexAny(truncated, ".?!")
	if cut > len(truncated)/2 {
		return truncated[:cut+1]
	}
	return truncated + "..."
}
