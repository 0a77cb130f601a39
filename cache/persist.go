package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/answercache/observe"
)

// diskEntry is the persisted form of an Entry. Times are Unix milliseconds;
// lastAccessed is omitted for entries never read.
type diskEntry struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Timestamp    int64  `json:"timestamp"`
	AccessCount  int64  `json:"accessCount"`
	LastAccessed int64  `json:"lastAccessed,omitempty"`
	GameContext  string `json:"gameContext,omitempty"`
}

func toDisk(e Entry) diskEntry {
	d := diskEntry{
		Question:    e.Question,
		Answer:      e.Answer,
		Timestamp:   e.Timestamp.UnixMilli(),
		AccessCount: e.AccessCount,
		GameContext: e.GameContext,
	}
	if !e.LastAccessed.IsZero() {
		d.LastAccessed = e.LastAccessed.UnixMilli()
	}
	return d
}

func fromDisk(d diskEntry) Entry {
	e := Entry{
		Question:    d.Question,
		Answer:      d.Answer,
		Timestamp:   time.UnixMilli(d.Timestamp),
		AccessCount: max(d.AccessCount, 0),
		GameContext: d.GameContext,
	}
	if d.LastAccessed > 0 {
		e.LastAccessed = time.UnixMilli(d.LastAccessed)
	}
	return e
}

// Persister reads and writes the store as one JSON object keyed by hash.
type Persister struct {
	path string
	log  observe.Logger
}

// NewPersister creates a Persister for path. A nil logger discards output.
func NewPersister(path string, log observe.Logger) *Persister {
	if log == nil {
		log = observe.NopLogger()
	}
	return &Persister{path: path, log: log}
}

// Path returns the cache file path.
func (p *Persister) Path() string {
	return p.path
}

// Load reads the cache file, creating its directory and an empty file when
// missing. An unparsable file is replaced with an empty one. Entries
// without a question or answer are dropped.
func (p *Persister) Load(ctx context.Context) (map[string]Entry, error) {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrInitialization, err)
	}

	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeAtomic(p.path, []byte("{}")); err != nil {
			return nil, fmt.Errorf("%w: create file: %w", ErrInitialization, err)
		}
		p.log.Info(ctx, "created empty cache file", observe.F("path", p.path))
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read file: %w", ErrInitialization, err)
	}

	var raw map[string]diskEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		p.log.Warn(ctx, "cache file unreadable, starting empty",
			observe.F("path", p.path), observe.Err(err))
		if err := writeAtomic(p.path, []byte("{}")); err != nil {
			return nil, fmt.Errorf("%w: reset corrupt file: %w", ErrInitialization, err)
		}
		return map[string]Entry{}, nil
	}

	entries := make(map[string]Entry, len(raw))
	skipped := 0
	for hash, d := range raw {
		if hash == "" || d.Question == "" || d.Answer == "" {
			skipped++
			continue
		}
		entries[hash] = fromDisk(d)
	}
	if skipped > 0 {
		p.log.Warn(ctx, "skipped invalid cache entries", observe.F("count", skipped))
	}
	return entries, nil
}

// Save writes entries to a temporary file next to the cache file and
// renames it into place.
func (p *Persister) Save(ctx context.Context, entries map[string]Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	raw := make(map[string]diskEntry, len(entries))
	for hash, e := range entries {
		raw[hash] = toDisk(e)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrSave, err)
	}
	if err := writeAtomic(p.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

// writeAtomic replaces path with data so that readers see either the old
// or the new content, never a partial write.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
