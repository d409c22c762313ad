// Package search turns free-text queries into ranked, highlighted results.
package search

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"natro/internal/model"
	"natro/internal/rank"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	snippetLength  = 200
	// overFetchFactor controls how many candidates beyond one page are
	// pulled back for re-ranking.
	overFetchFactor = 3

	suggestionLimit = 5
)

// PageIndex is the retrieval side of the page store.
type PageIndex interface {
	SearchPages(ctx context.Context, terms []string, opts model.SearchOptions, limit, offset int) ([]model.IndexedPage, error)
	CountPages(ctx context.Context, terms []string, opts model.SearchOptions) (int, error)
	LogSearch(ctx context.Context, query string, resultsCount, pageNumber int, responseTimeMs int64) error
}

// Engine is stateless and safe for unlimited concurrent callers.
type Engine struct {
	index     PageIndex
	suggester *Suggester
	logger    *slog.Logger
}

func NewEngine(index PageIndex, suggester *Suggester, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{index: index, suggester: suggester, logger: logger}
}

var nonWordRe = regexp.MustCompile(`\W`)

// Tokenize splits a query into lower-cased terms longer than two characters.
func Tokenize(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

// Search retrieves candidates from the index, re-scores them with the
// ranking engine, paginates, and decorates results with snippets and
// highlights. A query with no usable terms returns an empty response
// without touching the store.
func (e *Engine) Search(ctx context.Context, query string, opts model.SearchOptions) (*model.SearchResponse, error) {
	start := time.Now()

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = defaultPerPage
	}
	if opts.PerPage > maxPerPage {
		opts.PerPage = maxPerPage
	}

	keywords := Tokenize(query)
	terms := searchTerms(keywords)
	if len(terms) == 0 {
		return &model.SearchResponse{
			Results:          []model.SearchResult{},
			Page:             opts.Page,
			PerPage:          opts.PerPage,
			Query:            query,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	offset := (opts.Page - 1) * opts.PerPage
	pages, err := e.index.SearchPages(ctx, terms, opts, opts.PerPage*overFetchFactor, offset)
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(pages))
	for i := range pages {
		page := &pages[i]
		snippet := Snippet(page.Content, query, snippetLength)
		results = append(results, model.SearchResult{
			ID:                 page.ID,
			URL:                page.URL,
			Title:              page.Title,
			Description:        page.Description,
			Domain:             page.Domain,
			Favicon:            page.FaviconURL,
			Score:              rank.Score(page, query, keywords),
			Snippet:            snippet,
			HighlightedTitle:   Highlight(page.Title, query),
			HighlightedSnippet: Highlight(snippet, query),
			ContentType:        page.ContentType,
			ImageURL:           page.ImageURL,
			VideoURL:           page.VideoURL,
			ThumbnailURL:       page.ThumbnailURL,
			PublishedDate:      page.PublishedDate,
			Author:             page.Author,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.PerPage {
		results = results[:opts.PerPage]
	}

	total, err := e.index.CountPages(ctx, terms, opts)
	if err != nil {
		return nil, err
	}
	totalPages := (total + opts.PerPage - 1) / opts.PerPage

	var suggestions []string
	if e.suggester != nil {
		if suggestions, err = e.suggester.Suggest(ctx, query, suggestionLimit); err != nil {
			e.logger.Warn("suggestions failed", "query", query, "err", err)
			suggestions = nil
		}
		if err := e.suggester.Record(ctx, query); err != nil {
			e.logger.Warn("popularity record failed", "query", query, "err", err)
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if err := e.index.LogSearch(ctx, query, total, opts.Page, elapsed); err != nil {
		e.logger.Warn("search log failed", "query", query, "err", err)
	}

	return &model.SearchResponse{
		Results:          results,
		TotalResults:     total,
		Page:             opts.Page,
		PerPage:          opts.PerPage,
		TotalPages:       totalPages,
		Query:            query,
		ProcessingTimeMs: elapsed,
		Suggestions:      suggestions,
	}, nil
}

// searchTerms strips non-word characters from tokens for the full-text
// predicate, dropping tokens that strip to nothing.
func searchTerms(tokens []string) []string {
	var terms []string
	for _, t := range tokens {
		if cleaned := nonWordRe.ReplaceAllString(t, ""); cleaned != "" {
			terms = append(terms, cleaned)
		}
	}
	return terms
}
