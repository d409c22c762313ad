package search

import (
	"context"
	"strings"
)

// maxEditDistance bounds what still counts as a near-miss for did-you-mean.
const maxEditDistance = 3

// Popularity answers which historical queries contain a given text, most
// searched first, and records new searches.
type Popularity interface {
	Record(ctx context.Context, query string) error
	TopMatching(ctx context.Context, substr string, limit int) ([]string, error)
}

// KeywordSource provides indexed keywords for prefix backfill.
type KeywordSource interface {
	KeywordPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
}

type Suggester struct {
	popular  Popularity
	keywords KeywordSource
}

func NewSuggester(popular Popularity, keywords KeywordSource) *Suggester {
	return &Suggester{popular: popular, keywords: keywords}
}

// Suggest completes a partial query: popular queries containing it first,
// then distinct indexed keywords starting with it, in lexical order.
func (s *Suggester) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(partial))
	if len(q) < 2 {
		return nil, nil
	}

	suggestions, err := s.popular.TopMatching(ctx, q, limit)
	if err != nil {
		return nil, err
	}

	if len(suggestions) < limit && s.keywords != nil {
		backfill, err := s.keywords.KeywordPrefix(ctx, q, limit-len(suggestions))
		if err != nil {
			return suggestions, err
		}
		seen := make(map[string]bool, len(suggestions))
		for _, sugg := range suggestions {
			seen[sugg] = true
		}
		for _, kw := range backfill {
			if !seen[kw] {
				suggestions = append(suggestions, kw)
			}
		}
	}
	return suggestions, nil
}

func (s *Suggester) Record(ctx context.Context, query string) error {
	return s.popular.Record(ctx, query)
}

// DidYouMean returns the first candidate within edit distance (0, 3] of the
// query, or "" when no near-miss exists.
func DidYouMean(query string, candidates []string) string {
	if query == "" {
		return ""
	}
	queryLower := strings.ToLower(query)
	for _, candidate := range candidates {
		d := levenshtein(queryLower, strings.ToLower(candidate))
		if d > 0 && d <= maxEditDistance {
			return candidate
		}
	}
	return ""
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := 0; j <= len(ra); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j-1]+cost, minInt(curr[j-1]+1, prev[j]+1))
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
