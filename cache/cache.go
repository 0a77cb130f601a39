package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/answercache/observe"
)

// SemanticCache is a persistent question/answer cache with exact and
// similarity lookup.
//
// Contract:
//   - Concurrency: safe for concurrent use. Mutations are serialized; reads
//     never wait for a mutation and may miss an entry being written.
//   - Context: mutating methods wait for the write serializer until ctx ends
//     and then fail with ErrWriteBusy.
//   - Errors: nothing panics. Persistence failures are logged and reported
//     through FlushIfDirty and Shutdown.
type SemanticCache struct {
	cfg       Config
	threshold atomic.Uint64 // float64 bits

	keyer     Keyer
	persister *Persister
	store     *store
	index     *invertedIndex
	hot       *hotTier
	counters  counters

	// writeSem admits one mutation at a time.
	writeSem *semaphore.Weighted

	dirty      atomic.Bool
	closed     atomic.Bool
	memoryOnly atomic.Bool
	saveFailed atomic.Bool

	startedAt time.Time
	now       func() time.Time
	in        observe.Instruments
	log       observe.Logger
}

// Option configures a SemanticCache.
type Option func(*SemanticCache)

// WithKeyer replaces the default SHA-256 keyer.
func WithKeyer(k Keyer) Option {
	return func(c *SemanticCache) { c.keyer = k }
}

// WithInstruments sets the tracer, metrics and logger the cache reports to.
func WithInstruments(in observe.Instruments) Option {
	return func(c *SemanticCache) { c.in = in }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *SemanticCache) { c.now = now }
}

// New creates a cache handle without touching disk. Zero numeric fields of
// cfg take their defaults. Call Initialize before use, or use Open.
func New(cfg Config, opts ...Option) (*SemanticCache, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &SemanticCache{
		cfg:      cfg,
		keyer:    NewDefaultKeyer(),
		store:    newStore(),
		index:    newInvertedIndex(),
		writeSem: semaphore.NewWeighted(1),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.in = c.in.WithDefaults()
	c.log = c.in.Logger.WithComponent("cache")
	c.startedAt = c.now()
	c.threshold.Store(math.Float64bits(cfg.SimilarityThreshold))

	hot, err := newHotTier(cfg.HotCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.hot = hot

	if cfg.Enabled {
		c.persister = NewPersister(cfg.Path, c.in.Logger.WithComponent("persist"))
	}
	return c, nil
}

// Open creates and initializes a cache. When initialization fails the
// returned cache is still usable in memory and the error wraps
// ErrInitialization; any other error leaves the cache nil.
func Open(ctx context.Context, cfg Config, opts ...Option) (*SemanticCache, error) {
	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c, c.Initialize(ctx)
}

// Enabled reports whether the cache is on.
func (c *SemanticCache) Enabled() bool {
	return c.cfg.Enabled
}

// Config returns the effective configuration.
func (c *SemanticCache) Config() Config {
	cfg := c.cfg
	cfg.SimilarityThreshold = c.SimilarityThreshold()
	return cfg
}

// SimilarityThreshold returns the current similarity threshold.
func (c *SemanticCache) SimilarityThreshold() float64 {
	return math.Float64frombits(c.threshold.Load())
}

// SetSimilarityThreshold changes the threshold for subsequent lookups.
func (c *SemanticCache) SetSimilarityThreshold(v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%w: similarity threshold %v not in (0, 1]", ErrInvalidConfig, v)
	}
	c.threshold.Store(math.Float64bits(v))
	return nil
}

// Key returns the hash question is stored under.
func (c *SemanticCache) Key(question string) (string, error) {
	return c.keyer.Key(question)
}

// Initialize loads the store from disk. If the directory or file cannot be
// prepared the cache continues empty and in memory only, and the returned
// error wraps ErrInitialization.
func (c *SemanticCache) Initialize(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	return c.in.Track(ctx, "initialize", func(ctx context.Context) error {
		entries, err := c.persister.Load(ctx)
		if err != nil {
			c.memoryOnly.Store(true)
			c.resetLocked(nil)
			c.log.Error(ctx, "cache initialization failed, continuing in memory", observe.Err(err))
			return err
		}

		recs := make(map[string]*record, len(entries))
		for h, e := range entries {
			recs[h] = newRecord(e)
		}
		c.memoryOnly.Store(false)
		c.resetLocked(recs)
		c.dirty.Store(false)
		c.log.Info(ctx, "cache loaded", observe.F("entries", len(recs)), observe.F("path", c.persister.Path()))

		if len(recs) > c.cfg.PruneTrigger {
			c.pruneLocked(ctx, c.cfg.PruneTarget)
			_ = c.saveLocked(ctx)
		}
		return nil
	})
}

// Lookup resolves question against the hot tier, then the exact hash, then
// similarity. A hit records an access on the matched entry.
func (c *SemanticCache) Lookup(ctx context.Context, question string) (*Match, bool) {
	if !c.cfg.Enabled || c.closed.Load() || strings.TrimSpace(question) == "" {
		return nil, false
	}

	start := c.now()
	ctx, span := c.in.Tracer.StartSpan(ctx, "lookup")
	m, outcome := c.lookup(question)
	span.SetAttributes(attribute.String("cache.outcome", outcome))
	c.in.Tracer.EndSpan(span, nil)
	c.in.Metrics.RecordLookup(ctx, outcome, c.now().Sub(start))

	return m, m != nil
}

func (c *SemanticCache) lookup(question string) (*Match, string) {
	now := c.now()

	if h, ok := c.hot.get(question); ok {
		if rec := c.store.get(h.hash); rec != nil {
			c.counters.hit(observe.OutcomeHot)
			e := rec.touch(now)
			c.dirty.Store(true)
			return &Match{Hash: h.hash, Kind: MatchHot, Entry: e, Similarity: 1}, observe.OutcomeHot
		}
		c.hot.remove(question)
	}

	hash, err := c.keyer.Key(question)
	if err != nil {
		c.counters.miss()
		return nil, observe.OutcomeMiss
	}

	if rec := c.store.get(hash); rec != nil {
		c.counters.hit(observe.OutcomeExact)
		e := rec.touch(now)
		c.hot.add(question, hotEntry{
			hash:        hash,
			question:    e.Question,
			answer:      e.Answer,
			timestamp:   e.Timestamp,
			gameContext: e.GameContext,
		})
		// A concurrent prune or clear may have dropped the entry after the
		// store read; every hot entry must stay backed by the store.
		if c.store.get(hash) == nil {
			c.hot.remove(question)
		}
		c.dirty.Store(true)
		return &Match{Hash: hash, Kind: MatchExact, Entry: e, Similarity: 1}, observe.OutcomeExact
	}

	if sm, ok := c.findSimilar(question, c.SimilarityThreshold()); ok {
		c.counters.hit(observe.OutcomeSimilar)
		e := sm.rec.touch(now)
		c.dirty.Store(true)
		return &Match{Hash: sm.hash, Kind: MatchSimilar, Entry: e, Similarity: sm.similarity}, observe.OutcomeSimilar
	}

	c.counters.miss()
	return nil, observe.OutcomeMiss
}

// InsertOption configures a single Insert.
type InsertOption func(*Entry)

// WithGameContext tags the entry with a game context.
func WithGameContext(gc string) InsertOption {
	return func(e *Entry) { e.GameContext = gc }
}

// Insert stores answer for question, replacing any entry with the same
// normalized question. It reports false with a nil error when the cache is
// disabled. A failed save is logged and does not undo the insert.
func (c *SemanticCache) Insert(ctx context.Context, question, answer string, opts ...InsertOption) (bool, error) {
	if !c.cfg.Enabled {
		return false, nil
	}
	if c.closed.Load() {
		return false, ErrClosed
	}
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		c.in.Metrics.RecordInsert(ctx, observe.InsertRejected)
		return false, fmt.Errorf("%w: question and answer are required", ErrInvalidValue)
	}
	hash, err := c.keyer.Key(question)
	if err != nil {
		c.in.Metrics.RecordInsert(ctx, observe.InsertRejected)
		return false, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	if err := c.acquire(ctx); err != nil {
		if errors.Is(err, ErrWriteBusy) {
			c.in.Metrics.RecordInsert(ctx, observe.InsertBusy)
		}
		return false, err
	}
	defer c.release()

	err = c.in.Track(ctx, "insert", func(ctx context.Context) error {
		now := c.now()
		e := Entry{Question: question, Answer: answer, Timestamp: now, LastAccessed: now}
		for _, opt := range opts {
			opt(&e)
		}

		if old := c.store.put(hash, newRecord(e)); old != nil {
			c.index.remove(hash, old.question)
			c.hot.removeHashes(map[string]struct{}{hash: {}})
		}
		c.index.add(hash, question)
		c.hot.add(question, hotEntry{
			hash:        hash,
			question:    question,
			answer:      answer,
			timestamp:   now,
			gameContext: e.GameContext,
		})
		c.counters.inserts.Add(1)

		if c.store.len() > c.cfg.PruneTrigger {
			c.pruneLocked(ctx, c.cfg.PruneTarget)
		}
		c.dirty.Store(true)
		_ = c.saveLocked(ctx)
		return nil
	})
	if err != nil {
		return false, err
	}
	c.in.Metrics.RecordInsert(ctx, observe.InsertStored)
	return true, nil
}

// Get returns the entry stored under hash without recording an access.
func (c *SemanticCache) Get(hash string) (Entry, bool) {
	if !c.cfg.Enabled {
		return Entry{}, false
	}
	rec := c.store.get(hash)
	if rec == nil {
		return Entry{}, false
	}
	return rec.snapshot(), true
}

// IsStale reports whether e is older than the refresh threshold or has been
// marked for refresh.
func (c *SemanticCache) IsStale(e Entry) bool {
	return e.NeedsRefresh || c.now().Sub(e.Timestamp) > c.cfg.RefreshThreshold
}

// MarkForRefresh flags the entry under hash as stale. The flag is not
// persisted.
func (c *SemanticCache) MarkForRefresh(ctx context.Context, hash string) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}
	if c.closed.Load() {
		return ErrClosed
	}
	rec := c.store.get(hash)
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	rec.markForRefresh()
	c.log.Debug(ctx, "entry marked for refresh", observe.F("hash", hash))
	return nil
}

// Refresh replaces the answer of the entry under hash and resets its
// timestamp.
func (c *SemanticCache) Refresh(ctx context.Context, hash, answer string) (Entry, error) {
	if !c.cfg.Enabled {
		return Entry{}, ErrDisabled
	}
	if c.closed.Load() {
		return Entry{}, ErrClosed
	}
	if strings.TrimSpace(answer) == "" {
		return Entry{}, fmt.Errorf("%w: answer is required", ErrInvalidValue)
	}
	if err := c.acquire(ctx); err != nil {
		return Entry{}, err
	}
	defer c.release()

	var out Entry
	err := c.in.Track(ctx, "refresh", func(ctx context.Context) error {
		rec := c.store.get(hash)
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		now := c.now()
		out = rec.refresh(answer, now)
		c.hot.update(hash, answer, now)
		c.dirty.Store(true)
		_ = c.saveLocked(ctx)
		return nil
	})
	return out, err
}

// FlushIfDirty saves the store if anything changed since the last save.
func (c *SemanticCache) FlushIfDirty(ctx context.Context) error {
	if !c.cfg.Enabled || c.closed.Load() || !c.dirty.Load() {
		return nil
	}
	if err := c.acquire(ctx); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	defer c.release()
	return c.saveLocked(ctx)
}

// Dirty reports whether the store has unsaved changes.
func (c *SemanticCache) Dirty() bool {
	return c.dirty.Load()
}

// Clear removes every entry and persists the empty store.
func (c *SemanticCache) Clear(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	return c.in.Track(ctx, "clear", func(ctx context.Context) error {
		n := c.store.count()
		c.resetLocked(nil)
		c.in.Metrics.RecordEviction(ctx, observe.PolicyClear, n)
		c.log.Info(ctx, "cache cleared", observe.F("removed", n))
		c.dirty.Store(true)
		return c.saveLocked(ctx)
	})
}

// Shutdown flushes unsaved changes and closes the cache. Later mutations
// fail with ErrClosed and lookups miss. Calling Shutdown again is a no-op.
// If ctx ends before the write serializer is free the cache stays open, so
// Shutdown can be retried without losing unsaved changes.
func (c *SemanticCache) Shutdown(ctx context.Context) error {
	if !c.cfg.Enabled || c.closed.Load() {
		return nil
	}
	if err := c.acquire(ctx); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	defer c.release()
	c.closed.Store(true)

	return c.in.Track(ctx, "shutdown", func(ctx context.Context) error {
		if !c.dirty.Load() {
			return nil
		}
		return c.saveLocked(ctx)
	})
}

// Closed reports whether Shutdown has been called.
func (c *SemanticCache) Closed() bool {
	return c.closed.Load()
}

// acquire waits for the write serializer. It fails with ErrClosed when
// Shutdown completed while the caller was waiting.
func (c *SemanticCache) acquire(ctx context.Context) error {
	if err := c.writeSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteBusy, err)
	}
	if c.closed.Load() {
		c.writeSem.Release(1)
		return ErrClosed
	}
	return nil
}

func (c *SemanticCache) release() {
	c.writeSem.Release(1)
}

// resetLocked replaces the store and rebuilds the derived structures.
func (c *SemanticCache) resetLocked(recs map[string]*record) {
	c.store.reset(recs)
	c.index.rebuild(c.store.questions())
	c.hot.purge()
}

// saveLocked persists the store when there is somewhere to persist it. On
// failure the store stays dirty and the error is logged and returned.
func (c *SemanticCache) saveLocked(ctx context.Context) error {
	if c.persister == nil || c.memoryOnly.Load() {
		c.dirty.Store(false)
		return nil
	}

	// Cleared before the snapshot so accesses during the write re-mark it.
	c.dirty.Store(false)
	err := c.in.Track(ctx, "save", func(ctx context.Context) error {
		return c.persister.Save(ctx, c.store.snapshot())
	})
	c.in.Metrics.RecordSave(ctx, err)
	if err != nil {
		c.dirty.Store(true)
		c.saveFailed.Store(true)
		c.log.Error(ctx, "cache save failed", observe.Err(err), observe.F("path", c.persister.Path()))
		return err
	}
	c.saveFailed.Store(false)
	return nil
}
