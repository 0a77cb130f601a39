package cache

import (
	"context"
	"sort"
	"time"

	"github.com/jonwraymond/answercache/observe"
)

// Evict prunes least-recently-used entries until at most target remain and
// reports how many were removed. A target of zero or less means the
// configured PruneTarget.
func (c *SemanticCache) Evict(ctx context.Context, target int) (int, error) {
	if !c.cfg.Enabled {
		return 0, nil
	}
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if target <= 0 {
		target = c.cfg.PruneTarget
	}
	if err := c.acquire(ctx); err != nil {
		return 0, err
	}
	defer c.release()

	var removed int
	err := c.in.Track(ctx, "evict", func(ctx context.Context) error {
		removed = c.pruneLocked(ctx, target)
		if removed == 0 {
			return nil
		}
		return c.saveLocked(ctx)
	})
	return removed, err
}

// Sweep removes entries older than maxAge that were accessed fewer than
// minAccess times, and reports how many were removed.
func (c *SemanticCache) Sweep(ctx context.Context, maxAge time.Duration, minAccess int64) (int, error) {
	if !c.cfg.Enabled {
		return 0, nil
	}
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if err := c.acquire(ctx); err != nil {
		return 0, err
	}
	defer c.release()

	var removed int
	err := c.in.Track(ctx, "sweep", func(ctx context.Context) error {
		now := c.now()
		gone := make(map[string]struct{})
		for h, rec := range c.store.records() {
			e := rec.snapshot()
			if now.Sub(e.Timestamp) > maxAge && e.AccessCount < minAccess {
				c.store.delete(h)
				gone[h] = struct{}{}
			}
		}
		removed = len(gone)
		if removed == 0 {
			return nil
		}

		c.index.rebuild(c.store.questions())
		c.hot.removeHashes(gone)
		c.in.Metrics.RecordEviction(ctx, observe.PolicySweep, removed)
		c.log.Info(ctx, "swept stale entries",
			observe.F("removed", removed),
			observe.F("remaining", c.store.count()),
		)
		c.dirty.Store(true)
		return c.saveLocked(ctx)
	})
	return removed, err
}

type evictionCandidate struct {
	hash         string
	lastAccessed time.Time
	timestamp    time.Time
}

// pruneLocked removes entries in least-recently-used order until the store
// holds at most target. Never-accessed entries go first, then older
// accesses; ties fall to the older timestamp and then the hash.
func (c *SemanticCache) pruneLocked(ctx context.Context, target int) int {
	recs := c.store.records()
	excess := len(recs) - target
	if excess <= 0 {
		return 0
	}

	cands := make([]evictionCandidate, 0, len(recs))
	for h, rec := range recs {
		e := rec.snapshot()
		cands = append(cands, evictionCandidate{hash: h, lastAccessed: e.LastAccessed, timestamp: e.Timestamp})
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if !a.lastAccessed.Equal(b.lastAccessed) {
			return a.lastAccessed.Before(b.lastAccessed)
		}
		if !a.timestamp.Equal(b.timestamp) {
			return a.timestamp.Before(b.timestamp)
		}
		return a.hash < b.hash
	})

	gone := make(map[string]struct{}, excess)
	for _, cand := range cands[:excess] {
		if rec := c.store.delete(cand.hash); rec != nil {
			c.index.remove(cand.hash, rec.question)
			gone[cand.hash] = struct{}{}
		}
	}
	c.hot.removeHashes(gone)
	c.dirty.Store(true)

	c.in.Metrics.RecordEviction(ctx, observe.PolicyLRU, len(gone))
	c.log.Info(ctx, "pruned least recently used entries",
		observe.F("removed", len(gone)),
		observe.F("remaining", c.store.len()),
		observe.F("target", target),
	)
	return len(gone)
}
