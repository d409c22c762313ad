package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePopularity struct {
	queries  []string
	recorded []string
	err      error
}

func (f *fakePopularity) Record(ctx context.Context, query string) error {
	f.recorded = append(f.recorded, query)
	return nil
}

func (f *fakePopularity) TopMatching(ctx context.Context, substr string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, q := range f.queries {
		if strings.Contains(q, substr) && len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeKeywords struct {
	keywords []string
}

func (f *fakeKeywords) KeywordPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	var out []string
	for _, kw := range f.keywords {
		if strings.HasPrefix(kw, prefix) && len(out) < limit {
			out = append(out, kw)
		}
	}
	return out, nil
}

func TestSuggest_PopularFirstThenKeywords(t *testing.T) {
	s := NewSuggester(
		&fakePopularity{queries: []string{"cat food", "cat videos"}},
		&fakeKeywords{keywords: []string{"cat", "category", "caterpillar"}},
	)

	got, err := s.Suggest(context.Background(), "cat", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat food", "cat videos", "cat", "category", "caterpillar"}, got)
}

func TestSuggest_PopularityOrderPreserved(t *testing.T) {
	// Popularity source returns most-searched first; that order must survive.
	s := NewSuggester(&fakePopularity{queries: []string{"cats", "cat food", "dogs"}}, nil)

	got, err := s.Suggest(context.Background(), "cat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "cat food"}, got)
}

func TestSuggest_DeduplicatesBackfill(t *testing.T) {
	s := NewSuggester(
		&fakePopularity{queries: []string{"cats"}},
		&fakeKeywords{keywords: []string{"cats", "catalog"}},
	)

	got, err := s.Suggest(context.Background(), "cat", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "catalog"}, got)
}

func TestSuggest_TooShort(t *testing.T) {
	s := NewSuggester(&fakePopularity{}, &fakeKeywords{})

	got, err := s.Suggest(context.Background(), "c", 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Suggest(context.Background(), "  ", 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSuggest_RespectsLimit(t *testing.T) {
	s := NewSuggester(
		&fakePopularity{queries: []string{"go one", "go two", "go three"}},
		&fakeKeywords{keywords: []string{"golang", "gopher"}},
	)

	got, err := s.Suggest(context.Background(), "go", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSuggest_PopularityError(t *testing.T) {
	s := NewSuggester(&fakePopularity{err: errors.New("redis down")}, &fakeKeywords{})

	_, err := s.Suggest(context.Background(), "cat", 5)
	assert.Error(t, err)
}

func TestDidYouMean(t *testing.T) {
	candidates := []string{"receive", "tutorial", "golang"}

	assert.Equal(t, "receive", DidYouMean("recieve", candidates))
	assert.Equal(t, "", DidYouMean("receive", []string{"receive"}), "exact match is not a correction")
	assert.Equal(t, "", DidYouMean("xyz", candidates))
	assert.Equal(t, "", DidYouMean("", candidates))
	assert.Equal(t, "tutorial", DidYouMean("TUTORIAL?", candidates))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"go", "go", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}
