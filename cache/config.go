package cache

import (
	"fmt"
	"time"
)

// Config configures a SemanticCache.
type Config struct {
	// Enabled turns the cache on. A disabled cache answers every lookup
	// with a miss and ignores inserts.
	Enabled bool

	// Path is the JSON file the store persists to. Required when enabled.
	Path string

	// SimilarityThreshold is the minimum Jaccard similarity for a
	// similarity match, in (0, 1].
	SimilarityThreshold float64

	// RefreshThreshold is the age after which an entry is stale.
	RefreshThreshold time.Duration

	// MaxSize is a hard ceiling on the number of entries and bounds
	// PruneTrigger.
	MaxSize int

	// PruneTrigger is the size above which the store is pruned, both after
	// an insert and after loading the file.
	PruneTrigger int

	// PruneTarget is the size automatic pruning stops at.
	PruneTarget int

	// HotCapacity bounds the hot tier.
	HotCapacity int

	// FlushInterval is how often a Flusher saves a dirty store.
	FlushInterval time.Duration
}

// Defaults.
const (
	DefaultSimilarityThreshold = 0.85
	DefaultRefreshThreshold    = 30 * 24 * time.Hour
	DefaultMaxSize             = 1000
	DefaultPruneTrigger        = 1000
	DefaultPruneTarget         = 800
	DefaultHotCapacity         = 100
	DefaultFlushInterval       = 30 * time.Second
)

// DefaultConfig returns an enabled config persisting to path.
func DefaultConfig(path string) Config {
	return Config{
		Enabled:             true,
		Path:                path,
		SimilarityThreshold: DefaultSimilarityThreshold,
		RefreshThreshold:    DefaultRefreshThreshold,
		MaxSize:             DefaultMaxSize,
		PruneTrigger:        DefaultPruneTrigger,
		PruneTarget:         DefaultPruneTarget,
		HotCapacity:         DefaultHotCapacity,
		FlushInterval:       DefaultFlushInterval,
	}
}

// withDefaults fills zero-valued numeric fields.
func (c Config) withDefaults() Config {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.RefreshThreshold == 0 {
		c.RefreshThreshold = DefaultRefreshThreshold
	}
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.PruneTrigger == 0 {
		c.PruneTrigger = min(DefaultPruneTrigger, c.MaxSize)
	}
	if c.PruneTarget == 0 {
		c.PruneTarget = c.PruneTrigger * 4 / 5
	}
	if c.HotCapacity == 0 {
		c.HotCapacity = DefaultHotCapacity
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	return c
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity threshold %v not in (0, 1]", ErrInvalidConfig, c.SimilarityThreshold)
	case c.RefreshThreshold < 0:
		return fmt.Errorf("%w: negative refresh threshold", ErrInvalidConfig)
	case c.PruneTarget <= 0:
		return fmt.Errorf("%w: prune target must be positive", ErrInvalidConfig)
	case c.PruneTarget >= c.PruneTrigger:
		return fmt.Errorf("%w: prune target %d must be below prune trigger %d", ErrInvalidConfig, c.PruneTarget, c.PruneTrigger)
	case c.PruneTrigger > c.MaxSize:
		return fmt.Errorf("%w: prune trigger %d exceeds max size %d", ErrInvalidConfig, c.PruneTrigger, c.MaxSize)
	case c.HotCapacity <= 0:
		return fmt.Errorf("%w: hot capacity must be positive", ErrInvalidConfig)
	case c.FlushInterval < 0:
		return fmt.Errorf("%w: negative flush interval", ErrInvalidConfig)
	case c.Enabled && c.Path == "":
		return fmt.Errorf("%w: path is required when enabled", ErrInvalidConfig)
	}
	return nil
}
