package crawl

import (
	"regexp"
	"sort"
	"strings"

	"natro/internal/model"
)

// maxKeywords bounds index fan-out per page.
const maxKeywords = 50

var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"against": true, "all": true, "am": true, "an": true, "and": true,
	"any": true, "are": true, "as": true, "at": true, "be": true,
	"because": true, "been": true, "before": true, "being": true, "below": true,
	"between": true, "both": true, "but": true, "by": true, "can": true,
	"did": true, "do": true, "does": true, "doing": true, "down": true,
	"during": true, "each": true, "few": true, "for": true, "from": true,
	"further": true, "had": true, "has": true, "have": true, "having": true,
	"he": true, "her": true, "here": true, "hers": true, "herself": true,
	"him": true, "himself": true, "his": true, "how": true, "i": true,
	"if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "itself": true, "just": true, "me": true, "might": true,
	"more": true, "most": true, "must": true, "my": true, "myself": true,
	"no": true, "nor": true, "not": true, "now": true, "of": true,
	"off": true, "on": true, "once": true, "only": true, "or": true,
	"other": true, "our": true, "ours": true, "ourselves": true, "out": true,
	"over": true, "own": true, "same": true, "she": true, "should": true,
	"so": true, "some": true, "such": true, "than": true, "that": true,
	"the": true, "their": true, "theirs": true, "them": true, "themselves": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "to": true, "too": true, "under": true,
	"until": true, "up": true, "very": true, "was": true, "we": true,
	"were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "who": true, "whom": true, "why": true, "will": true,
	"with": true, "would": true, "you": true, "your": true, "yours": true,
	"yourself": true, "yourselves": true,
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

func tokenize(text string) []string {
	return strings.Fields(nonWordRe.ReplaceAllString(strings.ToLower(text), " "))
}

// ExtractKeywords builds the per-page keyword table. Title tokens count three
// times and description tokens twice ahead of body content; relevance
// multipliers for title presence, description presence and high raw
// frequency compound. Output is capped and sorted by descending relevance.
func ExtractKeywords(content, title, description string) []model.Keyword {
	corpus := strings.Join([]string{title, title, title, description, description, content}, " ")

	var words []string
	for _, w := range tokenize(corpus) {
		if len(w) > 2 && !stopWords[w] {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	frequency := make(map[string]int)
	for _, w := range words {
		frequency[w]++
	}

	titleWords := make(map[string]bool)
	for _, w := range tokenize(title) {
		titleWords[w] = true
	}
	descriptionWords := make(map[string]bool)
	for _, w := range tokenize(description) {
		descriptionWords[w] = true
	}

	keywords := make([]model.Keyword, 0, len(frequency))
	for term, freq := range frequency {
		relevance := float64(freq) / float64(len(words))
		if titleWords[term] {
			relevance *= 3.0
		}
		if descriptionWords[term] {
			relevance *= 2.0
		}
		if freq > 5 {
			relevance *= 1.5
		}
		keywords = append(keywords, model.Keyword{Term: term, Frequency: freq, Relevance: relevance})
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Relevance == keywords[j].Relevance {
			return keywords[i].Term < keywords[j].Term
		}
		return keywords[i].Relevance > keywords[j].Relevance
	})
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// WordCount counts whitespace-delimited tokens in content.
func WordCount(content string) int {
	return len(strings.Fields(content))
}
