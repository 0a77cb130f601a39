package cache

import (
	"sync"
	"time"
)

// Entry is a snapshot of one cached question and answer.
type Entry struct {
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Timestamp    time.Time `json:"timestamp"`
	LastAccessed time.Time `json:"lastAccessed,omitzero"`
	AccessCount  int64     `json:"accessCount"`
	GameContext  string    `json:"gameContext,omitempty"`
	NeedsRefresh bool      `json:"needsRefresh,omitempty"`
}

// MatchKind says how a lookup was resolved.
type MatchKind int

const (
	// MatchHot is a hit in the hot tier on the raw question.
	MatchHot MatchKind = iota
	// MatchExact is a hit on the normalized question hash.
	MatchExact
	// MatchSimilar is a hit through token-set similarity.
	MatchSimilar
)

func (k MatchKind) String() string {
	switch k {
	case MatchHot:
		return "hot"
	case MatchExact:
		return "exact"
	case MatchSimilar:
		return "similar"
	default:
		return "unknown"
	}
}

// Match is a lookup result.
type Match struct {
	Hash  string    `json:"hash"`
	Kind  MatchKind `json:"-"`
	Entry Entry     `json:"entry"`

	// Similarity is 1 for hot and exact matches.
	Similarity float64 `json:"similarity"`
}

// record is the store-owned mutable form of an entry.
type record struct {
	question string

	mu           sync.Mutex
	answer       string
	timestamp    time.Time
	lastAccessed time.Time
	accessCount  int64
	gameContext  string
	needsRefresh bool
}

func newRecord(e Entry) *record {
	return &record{
		question:     e.Question,
		answer:       e.Answer,
		timestamp:    e.Timestamp,
		lastAccessed: e.LastAccessed,
		accessCount:  e.AccessCount,
		gameContext:  e.GameContext,
		needsRefresh: e.NeedsRefresh,
	}
}

func (r *record) snapshot() Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *record) snapshotLocked() Entry {
	return Entry{
		Question:     r.question,
		Answer:       r.answer,
		Timestamp:    r.timestamp,
		LastAccessed: r.lastAccessed,
		AccessCount:  r.accessCount,
		GameContext:  r.gameContext,
		NeedsRefresh: r.needsRefresh,
	}
}

// touch records one access and returns the updated snapshot.
func (r *record) touch(now time.Time) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessCount++
	r.lastAccessed = now
	return r.snapshotLocked()
}

func (r *record) refresh(answer string, now time.Time) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answer = answer
	r.timestamp = now
	r.needsRefresh = false
	return r.snapshotLocked()
}

func (r *record) markForRefresh() {
	r.mu.Lock()
	r.needsRefresh = true
	r.mu.Unlock()
}
