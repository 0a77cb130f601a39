package cache

import "sort"

// Similarity returns the Jaccard similarity of the whitespace-separated
// term sets of a and b after normalization. Either side being empty gives 0.
func Similarity(a, b string) float64 {
	return jaccard(Fields(a), Fields(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

type similarMatch struct {
	hash       string
	rec        *record
	similarity float64
}

// findSimilar returns the best entry whose similarity to question is at
// least threshold. Candidates come from the inverted index; with none the
// whole store is scanned. The first candidate wins a tie and a perfect
// score ends the search.
func (c *SemanticCache) findSimilar(question string, threshold float64) (similarMatch, bool) {
	terms := Fields(question)
	if len(terms) == 0 {
		return similarMatch{}, false
	}

	hashes := c.index.candidates(question)
	var recs map[string]*record
	if len(hashes) == 0 {
		recs = c.store.records()
		hashes = make([]string, 0, len(recs))
		for h := range recs {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)
	}

	var best similarMatch
	found := false
	for _, h := range hashes {
		var rec *record
		if recs != nil {
			rec = recs[h]
		} else {
			rec = c.store.get(h)
		}
		if rec == nil {
			continue
		}

		sim := jaccard(terms, Fields(rec.question))
		if sim >= threshold && sim > best.similarity {
			best = similarMatch{hash: h, rec: rec, similarity: sim}
			found = true
			if sim == 1 {
				break
			}
		}
	}
	return best, found
}
