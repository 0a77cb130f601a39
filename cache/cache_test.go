package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return DefaultConfig(filepath.Join(t.TempDir(), "cache", "answers.json"))
}

// newTestCache opens an enabled cache in a temp dir with a fake clock.
func newTestCache(t *testing.T, mutate func(*Config), opts ...Option) (*SemanticCache, *testClock) {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}
	clock := newTestClock()
	c, err := Open(context.Background(), cfg, append([]Option{WithClock(clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c, clock
}

func mustInsert(t *testing.T, c *SemanticCache, q, a string) string {
	t.Helper()
	ok, err := c.Insert(context.Background(), q, a)
	if err != nil || !ok {
		t.Fatalf("Insert(%q) = %v, %v", q, ok, err)
	}
	h, err := c.Key(q)
	if err != nil {
		t.Fatalf("Key(%q) error = %v", q, err)
	}
	return h
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.SimilarityThreshold = 1.5
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestOpen_CreatesEmptyFile(t *testing.T) {
	cfg := testConfig(t)
	c, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = c.Shutdown(context.Background()) }()

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("file = %q, want {}", data)
	}
	if n := c.Stats().EntryCount; n != 0 {
		t.Errorf("EntryCount = %d, want 0", n)
	}
}

func TestInsertLookup_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	mustInsert(t, c, "What is the capital of France?", "Paris")

	m, ok := c.Lookup(ctx, "What is the capital of France?")
	if !ok {
		t.Fatal("Lookup() missed after Insert")
	}
	if m.Entry.Answer != "Paris" {
		t.Errorf("Answer = %q, want Paris", m.Entry.Answer)
	}
	if m.Entry.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", m.Entry.AccessCount)
	}
	if m.Kind != MatchHot {
		t.Errorf("Kind = %v, want hot", m.Kind)
	}
	if m.Entry.LastAccessed.IsZero() {
		t.Error("LastAccessed not set")
	}
}

func TestLookup_ExactAfterNormalization(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	hash := mustInsert(t, c, "What is Go?", "A language")

	m, ok := c.Lookup(ctx, "  what IS   go? ")
	if !ok {
		t.Fatal("Lookup() missed")
	}
	if m.Kind != MatchExact || m.Hash != hash || m.Similarity != 1 {
		t.Errorf("got kind=%v hash=%s sim=%v", m.Kind, m.Hash, m.Similarity)
	}

	// The same raw text now resolves in the hot tier.
	m, ok = c.Lookup(ctx, "  what IS   go? ")
	if !ok || m.Kind != MatchHot {
		t.Fatalf("second lookup = %v, %v; want hot hit", m, ok)
	}
	if m.Entry.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", m.Entry.AccessCount)
	}
}

func TestLookup_ExactWinsOverSimilar(t *testing.T) {
	c, _ := newTestCache(t, func(cfg *Config) { cfg.SimilarityThreshold = 0.5 })
	mustInsert(t, c, "best sword in the game", "excalibur")
	mustInsert(t, c, "best sword in the game please", "also excalibur")

	m, ok := c.Lookup(context.Background(), "Best sword in the game please")
	if !ok || m.Kind != MatchExact || m.Entry.Answer != "also excalibur" {
		t.Fatalf("Lookup() = %+v, %v", m, ok)
	}
}

func TestLookup_Miss(t *testing.T) {
	c, _ := newTestCache(t, nil)
	mustInsert(t, c, "where is the key", "under the mat")

	if _, ok := c.Lookup(context.Background(), "how do I fly"); ok {
		t.Error("unrelated question hit")
	}
	if got := c.HitRateStats().Misses; got != 1 {
		t.Errorf("Misses = %d, want 1", got)
	}
}

func TestLookup_BlankQuestion(t *testing.T) {
	c, _ := newTestCache(t, nil)
	for _, q := range []string{"", "   "} {
		if _, ok := c.Lookup(context.Background(), q); ok {
			t.Errorf("Lookup(%q) hit", q)
		}
	}
	if got := c.HitRateStats().TotalLookups; got != 0 {
		t.Errorf("TotalLookups = %d, want 0", got)
	}
}

func TestInsert_InvalidValue(t *testing.T) {
	c, _ := newTestCache(t, nil)
	tests := []struct{ q, a string }{
		{"", "answer"},
		{"question", ""},
		{"  ", "answer"},
		{"question", "\n"},
	}
	for _, tt := range tests {
		ok, err := c.Insert(context.Background(), tt.q, tt.a)
		if ok || !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Insert(%q, %q) = %v, %v; want ErrInvalidValue", tt.q, tt.a, ok, err)
		}
	}
	if n := c.Stats().EntryCount; n != 0 {
		t.Errorf("EntryCount = %d, want 0", n)
	}
}

func TestInsert_OverwritesExisting(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	hash := mustInsert(t, c, "who made go", "google")
	c.Lookup(ctx, "who made go")

	clock.Advance(time.Hour)
	mustInsert(t, c, "Who made Go", "robert, rob and ken")

	e, ok := c.Get(hash)
	if !ok {
		t.Fatal("entry missing")
	}
	if e.Answer != "robert, rob and ken" || e.AccessCount != 0 || !e.Timestamp.Equal(clock.Now()) {
		t.Errorf("entry not replaced: %+v", e)
	}
	if e.Question != "Who made Go" {
		t.Errorf("Question = %q", e.Question)
	}
	if n := c.Stats().EntryCount; n != 1 {
		t.Errorf("EntryCount = %d, want 1", n)
	}

	m, ok := c.Lookup(ctx, "who made go")
	if !ok || m.Entry.Answer != "robert, rob and ken" {
		t.Errorf("stale hot entry served: %+v", m)
	}
}

func TestInsert_WithGameContext(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ok, err := c.Insert(context.Background(), "how to jump", "press A", WithGameContext("platformer"))
	if !ok || err != nil {
		t.Fatalf("Insert() = %v, %v", ok, err)
	}
	m, _ := c.Lookup(context.Background(), "how to jump")
	if m.Entry.GameContext != "platformer" {
		t.Errorf("GameContext = %q", m.Entry.GameContext)
	}
}

func TestInsert_WriteBusy(t *testing.T) {
	c, _ := newTestCache(t, nil)
	if err := c.writeSem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err := c.Insert(ctx, "question", "answer")
	c.writeSem.Release(1)

	if ok || !errors.Is(err, ErrWriteBusy) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Insert() = %v, %v; want ErrWriteBusy", ok, err)
	}
	if _, found := c.Lookup(context.Background(), "question"); found {
		t.Error("busy insert was applied")
	}
}

func TestInsert_Concurrent(t *testing.T) {
	c, _ := newTestCache(t, nil)
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Insert(context.Background(), fmt.Sprintf("question number %d", i), "answer"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Insert() error = %v", err)
	}

	if got := c.Stats().EntryCount; got != n {
		t.Errorf("EntryCount = %d, want %d", got, n)
	}
	for i := range n {
		h, _ := c.Key(fmt.Sprintf("question number %d", i))
		if _, ok := c.Get(h); !ok {
			t.Errorf("entry %d missing", i)
		}
	}
}

func TestPersistence_Reopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ok, err := c.Insert(ctx, "what is the max level", "99", WithGameContext("rpg"))
	if !ok || err != nil {
		t.Fatalf("Insert() = %v, %v", ok, err)
	}
	c.Lookup(ctx, "what is the max level")
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	c2, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = c2.Shutdown(ctx) }()

	m, ok := c2.Lookup(ctx, "What is the max level")
	if !ok {
		t.Fatal("entry lost across reopen")
	}
	if m.Entry.Answer != "99" || m.Entry.GameContext != "rpg" {
		t.Errorf("entry = %+v", m.Entry)
	}
	if m.Entry.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", m.Entry.AccessCount)
	}
}

func TestInitialize_CorruptFileRecovers(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = c.Shutdown(context.Background()) }()

	if n := c.Stats().EntryCount; n != 0 {
		t.Errorf("EntryCount = %d, want 0", n)
	}
	data, _ := os.ReadFile(cfg.Path)
	if string(data) != "{}" {
		t.Errorf("file = %q, want {}", data)
	}
	mustInsert(t, c, "still works", "yes")
}

func TestInitialize_FailureFallsBackToMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(filepath.Join(blocker, "sub", "answers.json"))

	c, err := Open(context.Background(), cfg)
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("Open() error = %v, want ErrInitialization", err)
	}
	if c == nil {
		t.Fatal("Open() returned nil cache on initialization failure")
	}
	defer func() { _ = c.Shutdown(context.Background()) }()

	mustInsert(t, c, "memory only", "ok")
	st := c.Stats()
	if !st.MemoryOnly || st.Dirty {
		t.Errorf("Stats() = %+v; want MemoryOnly and clean", st)
	}
	if _, ok := c.Lookup(context.Background(), "memory only"); !ok {
		t.Error("memory-only cache missed")
	}
	if err := c.FlushIfDirty(context.Background()); err != nil {
		t.Errorf("FlushIfDirty() error = %v", err)
	}
}

// breakSaves replaces the cache file with a non-empty directory so that
// renaming over it fails.
func breakSaves(t *testing.T, path string) {
	t.Helper()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "occupied"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestInsert_SaveFailureKeepsEntry(t *testing.T) {
	c, _ := newTestCache(t, nil)
	breakSaves(t, c.Config().Path)

	ok, err := c.Insert(context.Background(), "kept in memory", "yes")
	if !ok || err != nil {
		t.Fatalf("Insert() = %v, %v; want true, nil", ok, err)
	}
	if !c.Dirty() {
		t.Error("store should stay dirty after a failed save")
	}
	if err := c.FlushIfDirty(context.Background()); !errors.Is(err, ErrSave) {
		t.Errorf("FlushIfDirty() error = %v, want ErrSave", err)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(c.Config().Path), ".answers.json.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFlushIfDirty(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	mustInsert(t, c, "flush me", "ok")
	if c.Dirty() {
		t.Fatal("insert should leave the store clean")
	}

	c.Lookup(ctx, "flush me")
	if !c.Dirty() {
		t.Fatal("lookup hit should mark the store dirty")
	}
	if err := c.FlushIfDirty(ctx); err != nil {
		t.Fatalf("FlushIfDirty() error = %v", err)
	}
	if c.Dirty() {
		t.Error("store still dirty after flush")
	}

	entries, err := NewPersister(c.Config().Path, nil).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := c.Key("flush me")
	if entries[h].AccessCount != 1 {
		t.Errorf("persisted AccessCount = %d, want 1", entries[h].AccessCount)
	}
}

func TestRefresh(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	hash := mustInsert(t, c, "current patch", "1.0")
	if err := c.MarkForRefresh(ctx, hash); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour)
	e, err := c.Refresh(ctx, hash, "1.1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if e.Answer != "1.1" || !e.Timestamp.Equal(clock.Now()) || e.NeedsRefresh {
		t.Errorf("Refresh() = %+v", e)
	}

	m, ok := c.Lookup(ctx, "current patch")
	if !ok || m.Kind != MatchHot || m.Entry.Answer != "1.1" {
		t.Errorf("Lookup() after refresh = %+v, %v", m, ok)
	}
}

func TestRefresh_Errors(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	hash := mustInsert(t, c, "q", "a")

	if _, err := c.Refresh(ctx, "unknown", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown hash error = %v, want ErrNotFound", err)
	}
	if _, err := c.Refresh(ctx, hash, " "); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("blank answer error = %v, want ErrInvalidValue", err)
	}
	if err := c.MarkForRefresh(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkForRefresh() error = %v, want ErrNotFound", err)
	}
}

func TestIsStale(t *testing.T) {
	c, clock := newTestCache(t, func(cfg *Config) { cfg.RefreshThreshold = 24 * time.Hour })
	now := clock.Now()

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"fresh", Entry{Timestamp: now.Add(-time.Hour)}, false},
		{"exactly at threshold", Entry{Timestamp: now.Add(-24 * time.Hour)}, false},
		{"old", Entry{Timestamp: now.Add(-25 * time.Hour)}, true},
		{"flagged", Entry{Timestamp: now, NeedsRefresh: true}, true},
	}
	for _, tt := range tests {
		if got := c.IsStale(tt.entry); got != tt.want {
			t.Errorf("%s: IsStale() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	mustInsert(t, c, "one", "1")
	mustInsert(t, c, "two", "2")

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	st := c.Stats()
	if st.EntryCount != 0 || st.HotEntries != 0 || st.IndexedTokens != 0 {
		t.Errorf("Stats() after Clear = %+v", st)
	}
	if _, ok := c.Lookup(ctx, "one"); ok {
		t.Error("hit after Clear")
	}
	data, _ := os.ReadFile(c.Config().Path)
	if string(data) != "{}" {
		t.Errorf("file = %q, want {}", data)
	}
}

func TestShutdown(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	mustInsert(t, c, "before", "shutdown")
	c.Lookup(ctx, "before")

	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if c.Dirty() {
		t.Error("Shutdown did not flush")
	}
	if err := c.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}

	if _, ok := c.Lookup(ctx, "before"); ok {
		t.Error("Lookup hit after Shutdown")
	}
	if _, err := c.Insert(ctx, "after", "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Insert() after Shutdown error = %v, want ErrClosed", err)
	}
	if err := c.Clear(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Clear() after Shutdown error = %v, want ErrClosed", err)
	}
}

func TestShutdown_AfterBusyKeepsUnsavedChanges(t *testing.T) {
	c, _ := newTestCache(t, nil)
	hash := mustInsert(t, c, "unsaved", "answer")
	c.Lookup(context.Background(), "unsaved")
	if !c.Dirty() {
		t.Fatal("lookup did not mark the store dirty")
	}

	if err := c.writeSem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Shutdown(ctx)
	c.writeSem.Release(1)

	if !errors.Is(err, ErrWriteBusy) {
		t.Fatalf("busy Shutdown() error = %v, want ErrWriteBusy", err)
	}
	if c.Closed() {
		t.Fatal("busy Shutdown closed the cache")
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
	if c.Dirty() || !c.Closed() {
		t.Errorf("after Shutdown dirty=%v closed=%v", c.Dirty(), c.Closed())
	}

	reopened, err := Open(context.Background(), c.Config())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Shutdown(context.Background()) }()
	if e, ok := reopened.Get(hash); !ok || e.AccessCount != 1 {
		t.Errorf("reopened entry = %+v, %v; want AccessCount 1", e, ok)
	}
}

func TestShutdown_WaitingMutationSeesClosed(t *testing.T) {
	c, _ := newTestCache(t, nil)
	if err := c.writeSem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- c.Shutdown(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	insertErr := make(chan error, 1)
	go func() {
		_, err := c.Insert(context.Background(), "late", "answer")
		insertErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	c.writeSem.Release(1)

	if err := <-shutdownErr; err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-insertErr; !errors.Is(err, ErrClosed) {
		t.Errorf("waiting Insert() error = %v, want ErrClosed", err)
	}
	if n := c.Stats().EntryCount; n != 0 {
		t.Errorf("EntryCount = %d, want 0", n)
	}
}

func TestLookup_HotTierStaysBackedByStore(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	hash := mustInsert(t, c, "orphaned question", "answer")
	if _, ok := c.Lookup(ctx, "orphaned question"); !ok {
		t.Fatal("Lookup() missed")
	}
	if rec := c.store.delete(hash); rec != nil {
		c.index.remove(hash, rec.question)
	}

	if m, ok := c.Lookup(ctx, "orphaned question"); ok {
		t.Errorf("Lookup() served deleted entry %+v", m)
	}
	if n := c.hot.len(); n != 0 {
		t.Errorf("hot tier holds %d entries for a deleted hash", n)
	}
}

func TestLookup_ConcurrentClearKeepsHotTierConsistent(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	questions := []string{"alpha question", "beta question", "gamma question", "delta question"}
	for _, q := range questions {
		mustInsert(t, c, q, "answer")
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; ; n++ {
				select {
				case <-stop:
					return
				default:
				}
				// Vary the raw text so lookups take the exact path.
				c.Lookup(ctx, fmt.Sprintf("%s%s", questions[(i+n)%len(questions)], strings.Repeat(" ", n%7+1)))
			}
		}()
	}
	for range 50 {
		if err := c.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		for _, q := range questions[:2] {
			mustInsert(t, c, q, "answer")
		}
	}
	close(stop)
	wg.Wait()

	for _, e := range c.hot.lru.Values() {
		if c.store.get(e.hash) == nil {
			t.Errorf("hot entry %q has no store entry", e.question)
		}
	}
}

func TestMarkForRefresh_AfterShutdown(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	hash := mustInsert(t, c, "mark me", "answer")

	if err := c.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.MarkForRefresh(ctx, hash); !errors.Is(err, ErrClosed) {
		t.Errorf("MarkForRefresh() after Shutdown error = %v, want ErrClosed", err)
	}
}

func TestDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	c, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	ok, err := c.Insert(ctx, "question", "answer")
	if ok || err != nil {
		t.Errorf("Insert() = %v, %v; want false, nil", ok, err)
	}
	if _, hit := c.Lookup(ctx, "question"); hit {
		t.Error("Lookup() hit on disabled cache")
	}
	if _, err := c.Refresh(ctx, "h", "a"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Refresh() error = %v, want ErrDisabled", err)
	}
	if n, err := c.Evict(ctx, 1); n != 0 || err != nil {
		t.Errorf("Evict() = %d, %v", n, err)
	}
	if n, err := c.Sweep(ctx, 0, 10); n != 0 || err != nil {
		t.Errorf("Sweep() = %d, %v", n, err)
	}
	if !c.Stats().Disabled || !c.HitRateStats().Disabled {
		t.Error("stats should report disabled")
	}
	for name, err := range map[string]error{
		"FlushIfDirty": c.FlushIfDirty(ctx),
		"Clear":        c.Clear(ctx),
		"Shutdown":     c.Shutdown(ctx),
	} {
		if err != nil {
			t.Errorf("%s() error = %v", name, err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("disabled cache touched disk: %v", err)
	}
}

func TestSetSimilarityThreshold(t *testing.T) {
	c, _ := newTestCache(t, func(cfg *Config) { cfg.SimilarityThreshold = 0.9 })
	mustInsert(t, c, "alpha beta gamma", "greek")

	if _, ok := c.Lookup(context.Background(), "alpha beta gamma delta"); ok {
		t.Fatal("hit above threshold")
	}
	if err := c.SetSimilarityThreshold(0.7); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(context.Background(), "alpha beta gamma delta"); !ok {
		t.Error("miss after lowering the threshold")
	}
	if err := c.SetSimilarityThreshold(0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SetSimilarityThreshold(0) error = %v", err)
	}
	if got := c.Config().SimilarityThreshold; got != 0.7 {
		t.Errorf("Config().SimilarityThreshold = %v", got)
	}
}

func TestIndexConsistency(t *testing.T) {
	c, _ := newTestCache(t, nil)
	hash := mustInsert(t, c, "Where is the blue key?", "basement")

	for _, tok := range []string{"where", "is", "the", "blue", "key"} {
		if !c.index.contains(tok, hash) {
			t.Errorf("token %q does not map to entry", tok)
		}
	}

	mustInsert(t, c, "where is the blue key?", "attic")
	if n := c.index.tokenCount(); n != 5 {
		t.Errorf("tokenCount = %d, want 5", n)
	}
}
