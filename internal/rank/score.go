// Package rank scores candidate pages against queries and computes the
// offline link-authority score.
package rank

import (
	"strings"
	"time"

	"natro/internal/model"
)

// Factor weights. Title and description similarity are counted twice on
// purpose: once inside textRelevance and once standalone, biasing results
// toward title/description matches. Do not normalize this away.
const (
	weightTextRelevance    = 0.25
	weightTitleMatch       = 0.30
	weightDescriptionMatch = 0.15
	weightKeywordMatch     = 0.10
	weightPageRank         = 0.10
	weightFreshness        = 0.05
	weightDomainAuthority  = 0.03
	weightWordCount        = 0.02
)

var trustedDomains = map[string]bool{
	"wikipedia.org":     true,
	"github.com":        true,
	"stackoverflow.com": true,
	"medium.com":        true,
	"reddit.com":        true,
	"youtube.com":       true,
}

// Score rates page against the query on [0,1] as a weighted sum of eight
// independently normalized factors.
func Score(page *model.IndexedPage, query string, queryTerms []string) float64 {
	f := Factors(page, query, queryTerms)

	score := f.TextRelevance*weightTextRelevance +
		f.TitleMatch*weightTitleMatch +
		f.DescriptionMatch*weightDescriptionMatch +
		f.KeywordMatch*weightKeywordMatch +
		f.PageRank*weightPageRank +
		f.Freshness*weightFreshness +
		f.DomainAuthority*weightDomainAuthority +
		f.WordCount*weightWordCount

	return clamp01(score)
}

// RankingFactors holds the per-factor values before weighting.
type RankingFactors struct {
	TextRelevance    float64
	TitleMatch       float64
	DescriptionMatch float64
	KeywordMatch     float64
	PageRank         float64
	Freshness        float64
	DomainAuthority  float64
	WordCount        float64
}

func Factors(page *model.IndexedPage, query string, queryTerms []string) RankingFactors {
	queryLower := strings.ToLower(query)
	titleLower := strings.ToLower(page.Title)
	descriptionLower := strings.ToLower(page.Description)
	contentLower := strings.ToLower(page.Content)

	titleMatch := textMatch(titleLower, queryLower, queryTerms)
	descriptionMatch := textMatch(descriptionLower, queryLower, queryTerms)
	contentMatch := textMatch(contentLower, queryLower, queryTerms)

	textRelevance := titleMatch*0.5 + descriptionMatch*0.3 + contentMatch*0.2
	if textRelevance < 0 {
		textRelevance = 0
	}

	return RankingFactors{
		TextRelevance:    textRelevance,
		TitleMatch:       titleMatch,
		DescriptionMatch: descriptionMatch,
		KeywordMatch:     keywordMatch(contentLower, queryTerms),
		PageRank:         page.PageRank,
		Freshness:        freshness(page.LastIndexedAt),
		DomainAuthority:  domainAuthority(page.Domain),
		WordCount:        wordCountFactor(page.WordCount),
	}
}

// textMatch scores one field: full credit for an exact query substring, half
// credit per matched keyword, plus the fraction of query words found inside
// the field's words. Capped at 1.
func textMatch(text, query string, keywords []string) float64 {
	if text == "" {
		return 0
	}

	score := 0.0
	if strings.Contains(text, query) {
		score += 1.0
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score += 0.5
		}
	}

	words := strings.Fields(text)
	queryWords := strings.Fields(query)
	if len(queryWords) > 0 {
		matched := 0
		for _, qw := range queryWords {
			for _, w := range words {
				if strings.Contains(w, qw) {
					matched++
					break
				}
			}
		}
		score += float64(matched) / float64(len(queryWords))
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

func keywordMatch(contentLower string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(contentLower, kw) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords))
}

func freshness(lastIndexed time.Time) float64 {
	days := time.Since(lastIndexed).Hours() / 24
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.9
	case days <= 30:
		return 0.7
	case days <= 90:
		return 0.5
	case days <= 180:
		return 0.3
	default:
		return 0.1
	}
}

func domainAuthority(domain string) float64 {
	if trustedDomains[domain] {
		return 1.0
	}
	parts := strings.Split(domain, ".")
	if len(parts) == 2 && len(parts[1]) <= 3 {
		return 0.7
	}
	return 0.5
}

func wordCountFactor(wordCount int) float64 {
	switch {
	case wordCount < 100:
		return 0.3
	case wordCount < 500:
		return 0.6
	case wordCount < 1000:
		return 0.8
	case wordCount < 2000:
		return 1.0
	case wordCount < 5000:
		return 0.9
	default:
		return 0.7
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
