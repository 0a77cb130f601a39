package cache

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestHitRateStats(t *testing.T) {
	c, clock := newTestCache(t, func(cfg *Config) { cfg.SimilarityThreshold = 0.7 })
	ctx := context.Background()
	mustInsert(t, c, "alpha beta gamma", "greek")

	if got := c.HitRateStats(); got.TotalLookups != 0 || got.HitRate != 0 {
		t.Errorf("fresh stats = %+v", got)
	}

	c.Lookup(ctx, "Alpha Beta Gamma")       // exact
	c.Lookup(ctx, "Alpha Beta Gamma")       // hot
	c.Lookup(ctx, "alpha beta gamma delta") // similar
	c.Lookup(ctx, "nothing like it")        // miss
	clock.Advance(36 * time.Hour)

	got := c.HitRateStats()
	want := HitRateStats{
		TotalLookups:        4,
		Hits:                3,
		Misses:              1,
		MemoryHits:          1,
		ExactMatches:        2,
		SimilarityMatches:   1,
		Inserts:             1,
		HitRate:             0.75,
		ExactMatchRate:      0.5,
		SimilarityMatchRate: 0.25,
		UptimeDays:          1.5,
	}
	if got != want {
		t.Errorf("HitRateStats() =\n%+v\nwant\n%+v", got, want)
	}

	st := c.Stats()
	if st.EntryCount != 1 || st.TotalAccesses != 3 || st.MostAccessedCount != 3 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestStats_MostAccessed(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	mustInsert(t, c, "often", "1")
	mustInsert(t, c, "rarely", "2")
	mustInsert(t, c, "never", "3")
	for range 4 {
		c.Lookup(ctx, "often")
	}
	c.Lookup(ctx, "rarely")

	st := c.Stats()
	if st.TotalAccesses != 5 || st.MostAccessedCount != 4 {
		t.Errorf("Stats() = %+v", st)
	}
	if math.IsNaN(c.HitRateStats().HitRate) {
		t.Error("HitRate is NaN")
	}
}

func TestStats_SelfHealsSize(t *testing.T) {
	c, _ := newTestCache(t, nil)
	mustInsert(t, c, "one", "1")
	mustInsert(t, c, "two", "2")

	c.store.mu.Lock()
	c.store.size = 99
	c.store.mu.Unlock()

	if n := c.Stats().EntryCount; n != 2 {
		t.Errorf("EntryCount = %d, want 2", n)
	}
	if n := c.store.len(); n != 2 {
		t.Errorf("tracked size = %d after Stats, want 2", n)
	}
}
