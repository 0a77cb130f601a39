package cache

import (
	"sync/atomic"
	"time"

	"github.com/jonwraymond/answercache/observe"
)

// counters tracks lookup outcomes since the handle was created.
type counters struct {
	lookups           atomic.Int64
	hits              atomic.Int64
	misses            atomic.Int64
	memoryHits        atomic.Int64
	exactMatches      atomic.Int64
	similarityMatches atomic.Int64
	inserts           atomic.Int64
}

func (c *counters) hit(outcome string) {
	c.lookups.Add(1)
	c.hits.Add(1)
	switch outcome {
	case observe.OutcomeHot:
		c.memoryHits.Add(1)
		c.exactMatches.Add(1)
	case observe.OutcomeExact:
		c.exactMatches.Add(1)
	case observe.OutcomeSimilar:
		c.similarityMatches.Add(1)
	}
}

func (c *counters) miss() {
	c.lookups.Add(1)
	c.misses.Add(1)
}

// Stats describes the stored entries.
type Stats struct {
	Disabled          bool  `json:"disabled"`
	EntryCount        int   `json:"entryCount"`
	TotalAccesses     int64 `json:"totalAccesses"`
	MostAccessedCount int64 `json:"mostAccessedCount"`
	HotEntries        int   `json:"hotEntries"`
	IndexedTokens     int   `json:"indexedTokens"`
	Dirty             bool  `json:"dirty"`
	MemoryOnly        bool  `json:"memoryOnly"`
}

// HitRateStats describes lookup outcomes since the cache was created.
type HitRateStats struct {
	Disabled            bool    `json:"disabled"`
	TotalLookups        int64   `json:"totalLookups"`
	Hits                int64   `json:"hits"`
	Misses              int64   `json:"misses"`
	MemoryHits          int64   `json:"memoryHits"`
	ExactMatches        int64   `json:"exactMatches"`
	SimilarityMatches   int64   `json:"similarityMatches"`
	Inserts             int64   `json:"inserts"`
	HitRate             float64 `json:"hitRate"`
	ExactMatchRate      float64 `json:"exactMatchRate"`
	SimilarityMatchRate float64 `json:"similarityMatchRate"`
	UptimeDays          float64 `json:"uptimeDays"`
}

// Stats returns entry statistics. The tracked entry count is recomputed and
// corrected as a side effect.
func (c *SemanticCache) Stats() Stats {
	if !c.cfg.Enabled {
		return Stats{Disabled: true}
	}

	s := Stats{
		EntryCount:    c.store.count(),
		HotEntries:    c.hot.len(),
		IndexedTokens: c.index.tokenCount(),
		Dirty:         c.dirty.Load(),
		MemoryOnly:    c.memoryOnly.Load(),
	}
	for _, rec := range c.store.records() {
		e := rec.snapshot()
		s.TotalAccesses += e.AccessCount
		s.MostAccessedCount = max(s.MostAccessedCount, e.AccessCount)
	}
	return s
}

// HitRateStats returns lookup statistics. Rates are fractions of all
// lookups and are 0 before the first lookup.
func (c *SemanticCache) HitRateStats() HitRateStats {
	if !c.cfg.Enabled {
		return HitRateStats{Disabled: true}
	}

	s := HitRateStats{
		TotalLookups:      c.counters.lookups.Load(),
		Hits:              c.counters.hits.Load(),
		Misses:            c.counters.misses.Load(),
		MemoryHits:        c.counters.memoryHits.Load(),
		ExactMatches:      c.counters.exactMatches.Load(),
		SimilarityMatches: c.counters.similarityMatches.Load(),
		Inserts:           c.counters.inserts.Load(),
		UptimeDays:        c.uptime().Hours() / 24,
	}
	if s.TotalLookups > 0 {
		total := float64(s.TotalLookups)
		s.HitRate = float64(s.Hits) / total
		s.ExactMatchRate = float64(s.ExactMatches) / total
		s.SimilarityMatchRate = float64(s.SimilarityMatches) / total
	}
	return s
}

// uptime returns how long the handle has existed.
func (c *SemanticCache) uptime() time.Duration {
	return c.now().Sub(c.startedAt)
}
