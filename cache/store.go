package cache

import "sync"

// store maps entry hashes to records. Mutations happen only while the
// cache's write serializer is held; the RWMutex only keeps concurrent map
// access memory-safe for readers.
type store struct {
	mu      sync.RWMutex
	entries map[string]*record
	size    int
}

func newStore() *store {
	return &store{entries: make(map[string]*record)}
}

func (s *store) get(hash string) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[hash]
}

// put stores rec under hash and returns the record it replaced, if any.
func (s *store) put(hash string, rec *record) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entries[hash]
	s.entries[hash] = rec
	if !ok {
		s.size++
	}
	return old
}

func (s *store) delete(hash string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[hash]
	if !ok {
		return nil
	}
	delete(s.entries, hash)
	s.size--
	return rec
}

// len returns the tracked size.
func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// count returns the number of entries, correcting the tracked size if it
// has drifted.
func (s *store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size != len(s.entries) {
		s.size = len(s.entries)
	}
	return s.size
}

// records returns a copy of the hash to record mapping.
func (s *store) records() map[string]*record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*record, len(s.entries))
	for h, r := range s.entries {
		out[h] = r
	}
	return out
}

// snapshot returns every entry by value.
func (s *store) snapshot() map[string]Entry {
	recs := s.records()
	out := make(map[string]Entry, len(recs))
	for h, r := range recs {
		out[h] = r.snapshot()
	}
	return out
}

// questions returns hash to question for index rebuilds.
func (s *store) questions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.entries))
	for h, r := range s.entries {
		out[h] = r.question
	}
	return out
}

func (s *store) reset(entries map[string]*record) {
	if entries == nil {
		entries = make(map[string]*record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.size = len(entries)
}
