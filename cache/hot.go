package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// hotEntry is the projection of an entry kept in the hot tier.
type hotEntry struct {
	hash        string
	question    string
	answer      string
	timestamp   time.Time
	gameContext string
}

func (h hotEntry) entry() Entry {
	return Entry{
		Question:    h.question,
		Answer:      h.answer,
		Timestamp:   h.timestamp,
		GameContext: h.gameContext,
	}
}

// hotTier is a bounded recency cache keyed by the raw question text.
type hotTier struct {
	lru *lru.Cache[string, hotEntry]
}

func newHotTier(capacity int) (*hotTier, error) {
	c, err := lru.New[string, hotEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &hotTier{lru: c}, nil
}

func (t *hotTier) get(raw string) (hotEntry, bool) {
	return t.lru.Get(raw)
}

func (t *hotTier) add(raw string, e hotEntry) {
	t.lru.Add(raw, e)
}

func (t *hotTier) remove(raw string) {
	t.lru.Remove(raw)
}

// removeHashes drops every hot entry backed by one of hashes.
func (t *hotTier) removeHashes(hashes map[string]struct{}) {
	if len(hashes) == 0 {
		return
	}
	for _, k := range t.lru.Keys() {
		if e, ok := t.lru.Peek(k); ok {
			if _, gone := hashes[e.hash]; gone {
				t.lru.Remove(k)
			}
		}
	}
}

// update rewrites the answer of every hot entry backed by hash.
func (t *hotTier) update(hash, answer string, ts time.Time) {
	for _, k := range t.lru.Keys() {
		e, ok := t.lru.Peek(k)
		if !ok || e.hash != hash {
			continue
		}
		e.answer = answer
		e.timestamp = ts
		t.lru.Add(k, e)
	}
}

func (t *hotTier) purge() {
	t.lru.Purge()
}

func (t *hotTier) len() int {
	return t.lru.Len()
}
