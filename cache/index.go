package cache

import (
	"sort"
	"sync"
)

// invertedIndex maps each question token to the hashes of the entries
// whose question contains it.
type invertedIndex struct {
	mu       sync.RWMutex
	postings map[string]map[string]struct{}
}

func newInvertedIndex() *invertedIndex {
	return &invertedIndex{postings: make(map[string]map[string]struct{})}
}

func (ix *invertedIndex) add(hash, question string) {
	tokens := Tokenize(question)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, tok := range tokens {
		set, ok := ix.postings[tok]
		if !ok {
			set = make(map[string]struct{})
			ix.postings[tok] = set
		}
		set[hash] = struct{}{}
	}
}

func (ix *invertedIndex) remove(hash, question string) {
	tokens := Tokenize(question)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, tok := range tokens {
		set, ok := ix.postings[tok]
		if !ok {
			continue
		}
		delete(set, hash)
		if len(set) == 0 {
			delete(ix.postings, tok)
		}
	}
}

// rebuild replaces the index with one built from hash to question.
func (ix *invertedIndex) rebuild(questions map[string]string) {
	postings := make(map[string]map[string]struct{})
	for hash, q := range questions {
		for _, tok := range Tokenize(q) {
			set, ok := postings[tok]
			if !ok {
				set = make(map[string]struct{})
				postings[tok] = set
			}
			set[hash] = struct{}{}
		}
	}
	ix.mu.Lock()
	ix.postings = postings
	ix.mu.Unlock()
}

// candidates returns hashes sharing at least one token with question,
// ordered by descending shared-token count and then by hash.
func (ix *invertedIndex) candidates(question string) []string {
	tokens := Tokenize(question)
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int)
	ix.mu.RLock()
	for _, tok := range tokens {
		for h := range ix.postings[tok] {
			counts[h]++
		}
	}
	ix.mu.RUnlock()

	out := make([]string, 0, len(counts))
	for h := range counts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func (ix *invertedIndex) tokenCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// contains reports whether token maps to hash.
func (ix *invertedIndex) contains(token, hash string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.postings[token][hash]
	return ok
}
