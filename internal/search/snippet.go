package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// boundaryTolerance is how far a snippet edge may move to land on a word
// boundary instead of cutting mid-word.
const boundaryTolerance = 20

// Snippet extracts a window of roughly maxLength characters centered on the
// first query match: the full query substring if present, otherwise the
// first individual query word, otherwise a plain prefix.
func Snippet(content, query string, maxLength int) string {
	if content == "" || query == "" {
		return prefixSnippet(content, maxLength)
	}

	contentLower := strings.ToLower(content)
	queryLower := strings.ToLower(query)

	if idx := strings.Index(contentLower, queryLower); idx != -1 {
		return snippetAround(content, idx, maxLength)
	}

	for _, word := range strings.Fields(queryLower) {
		if len(word) <= 2 {
			continue
		}
		if idx := strings.Index(contentLower, word); idx != -1 {
			return snippetAround(content, idx, maxLength)
		}
	}
	return prefixSnippet(content, maxLength)
}

func prefixSnippet(content string, maxLength int) string {
	if len(content) <= maxLength {
		return content
	}
	return content[:runeFloor(content, maxLength)] + "…"
}

func snippetAround(text string, index, maxLength int) string {
	half := maxLength / 2
	start := index - half
	if start < 0 {
		start = 0
	}
	end := index + half
	if end > len(text) {
		end = len(text)
	}

	// Byte offsets land anywhere; snap to rune starts before slicing.
	start = runeFloor(text, start)
	end = runeCeil(text, end)

	// Nudge both edges to word boundaries within tolerance.
	if start > 0 {
		if sp := strings.Index(text[start:], " "); sp != -1 && sp < boundaryTolerance {
			start += sp + 1
		}
	}
	if end < len(text) {
		if sp := strings.LastIndex(text[:end], " "); sp != -1 && sp > end-boundaryTolerance {
			end = sp
		}
	}

	snippet := strings.TrimSpace(text[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(text) {
		snippet += "…"
	}
	return snippet
}

func runeFloor(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func runeCeil(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// Highlight wraps every occurrence of each query word (length > 2) in
// <mark> tags, case-insensitively. Words apply independently; overlapping
// marks are not deduplicated.
func Highlight(text, query string) string {
	if text == "" || query == "" {
		return text
	}
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= 2 {
			continue
		}
		re, err := regexp.Compile(`(?i)(` + regexp.QuoteMeta(word) + `)`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, "<mark>$1</mark>")
	}
	return text
}
