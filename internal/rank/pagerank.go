package rank

const (
	dampingFactor      = 0.85
	pageRankIterations = 20
)

// ComputePageRank runs the classic iterative algorithm over the full link
// graph. pages are node keys (normalized URLs); incoming maps each page to
// the pages linking to it. An out-degree of zero counts as one.
//
// This is a batch computation run offline; its output feeds the pageRank
// ranking factor.
func ComputePageRank(pages []string, incoming map[string][]string) map[string]float64 {
	n := len(pages)
	if n == 0 {
		return map[string]float64{}
	}

	outDegree := make(map[string]int, n)
	for _, sources := range incoming {
		for _, src := range sources {
			outDegree[src]++
		}
	}

	ranks := make(map[string]float64, n)
	for _, page := range pages {
		ranks[page] = 1.0 / float64(n)
	}

	base := (1 - dampingFactor) / float64(n)
	for i := 0; i < pageRankIterations; i++ {
		next := make(map[string]float64, n)
		for _, page := range pages {
			r := base
			for _, src := range incoming[page] {
				out := outDegree[src]
				if out == 0 {
					out = 1
				}
				r += dampingFactor * ranks[src] / float64(out)
			}
			next[page] = r
		}
		ranks = next
	}
	return ranks
}
