package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet_CentersOnExactMatch(t *testing.T) {
	content := strings.Repeat("padding words here ", 20) +
		"the quick brown fox jumps over the lazy dog " +
		strings.Repeat("more trailing filler ", 20)

	got := Snippet(content, "brown fox", 80)
	assert.Contains(t, got, "brown fox")
	assert.True(t, strings.HasPrefix(got, "…"), "expected leading ellipsis: %q", got)
	assert.True(t, strings.HasSuffix(got, "…"), "expected trailing ellipsis: %q", got)
	assert.LessOrEqual(t, len([]rune(got)), 80+2*boundaryTolerance)
}

func TestSnippet_FallsBackToFirstWord(t *testing.T) {
	content := "nothing about the phrase as a whole but fox appears alone later on"
	got := Snippet(content, "brown fox", 40)
	assert.Contains(t, got, "fox")
}

func TestSnippet_PrefixWhenNoMatch(t *testing.T) {
	content := "completely unrelated text that mentions neither word of the query at all, going on for a while"
	got := Snippet(content, "zebra quagga", 30)
	assert.True(t, strings.HasSuffix(got, "…"), "got %q", got)
	assert.True(t, strings.HasPrefix(content, strings.TrimSuffix(got, "…")))
}

func TestSnippet_ShortContentReturnedWhole(t *testing.T) {
	assert.Equal(t, "short text", Snippet("short text", "anything", 200))
	assert.Equal(t, "", Snippet("", "query", 200))
}

func TestSnippet_CaseInsensitiveMatch(t *testing.T) {
	content := strings.Repeat("x ", 100) + "The Quick BROWN Fox" + strings.Repeat(" y", 100)
	got := Snippet(content, "brown fox", 60)
	assert.Contains(t, got, "BROWN Fox")
}

func TestSnippet_MultibyteContentStaysValidUTF8(t *testing.T) {
	cjk := strings.Repeat("これは長いテキストの例です。", 10)
	content := cjk + " brown fox " + cjk

	got := Snippet(content, "brown fox", 120)
	assert.True(t, utf8.ValidString(got), "match window cut mid-rune: %q", got)
	assert.Contains(t, got, "brown fox")

	got = Snippet(cjk, "brown fox", 50)
	assert.True(t, utf8.ValidString(got), "prefix cut mid-rune: %q", got)
	assert.True(t, strings.HasSuffix(got, "…"))

	got = Snippet(cjk, "", 50)
	assert.True(t, utf8.ValidString(got), "empty-query prefix cut mid-rune: %q", got)
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{"single word", "the quick fox", "quick", "the <mark>quick</mark> fox"},
		{"case preserved", "Quick thinking", "quick", "<mark>Quick</mark> thinking"},
		{"short words skipped", "go to the store", "go to", "go to the store"},
		{"multiple words", "brown fox, brown bear", "brown fox", "<mark>brown</mark> <mark>fox</mark>, <mark>brown</mark> bear"},
		{"empty query", "text", "", "text"},
		{"regex metachars escaped", "price (usd) listed", "(usd)", "price <mark>(usd)</mark> listed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.text, tt.query))
		})
	}
}
