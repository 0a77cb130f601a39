package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/answercache/observe"
)

// ReloadFunc is called after a changed file has been decoded and
// validated. Returning an error keeps the previous configuration.
type ReloadFunc func(ctx context.Context, old, updated *Config) error

// ThresholdSetter is the runtime-adjustable part of the cache.
type ThresholdSetter interface {
	SetSimilarityThreshold(v float64) error
}

// Watcher keeps a configuration current as its file changes.
//
// Only fields marked runtime-adjustable are applied by ApplyRuntime; other
// changes are logged and take effect on restart.
type Watcher struct {
	loader *loader
	log    observe.Logger

	mu        sync.RWMutex
	current   *Config
	callbacks []ReloadFunc
}

// NewWatcher loads path and prepares to watch it. path must name a file.
func NewWatcher(ctx context.Context, path string, log observe.Logger, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: watch requires a config file", ErrLoad)
	}
	if log == nil {
		log = observe.NopLogger()
	}
	l := newLoader(path, opts...)
	if err := l.read(); err != nil {
		return nil, err
	}
	cfg, err := l.decode(ctx)
	if err != nil {
		return nil, err
	}
	return &Watcher{loader: l, log: log.WithComponent("config"), current: cfg}, nil
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnReload registers fn to run after each successful reload.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins watching the file. The underlying watch lives for the
// process.
func (w *Watcher) Start(ctx context.Context) {
	w.loader.v.OnConfigChange(func(e fsnotify.Event) {
		w.handle(ctx, e)
	})
	w.loader.v.WatchConfig()
	w.log.Info(ctx, "watching config", observe.F("path", w.loader.path))
}

func (w *Watcher) handle(ctx context.Context, e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	if err := w.reload(ctx); err != nil {
		w.log.Error(ctx, "config reload rejected", observe.F("path", e.Name), observe.Err(err))
	}
}

func (w *Watcher) reload(ctx context.Context) error {
	if err := w.loader.read(); err != nil {
		return err
	}
	updated, err := w.loader.decode(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	old := w.current
	for _, fn := range w.callbacks {
		if err := fn(ctx, old, updated); err != nil {
			return err
		}
	}
	w.current = updated

	for _, field := range restartOnly(old, updated) {
		w.log.Warn(ctx, "config change requires restart", observe.F("field", field))
	}
	w.log.Info(ctx, "config reloaded")
	return nil
}

// ApplyRuntime returns a ReloadFunc that pushes the similarity threshold to
// c and the log level to log when they change. log may be nil or a logger
// without runtime levels.
func ApplyRuntime(c ThresholdSetter, log observe.Logger) ReloadFunc {
	return func(ctx context.Context, old, updated *Config) error {
		if c != nil && old.Cache.SimilarityThreshold != updated.Cache.SimilarityThreshold {
			if err := c.SetSimilarityThreshold(updated.Cache.SimilarityThreshold); err != nil {
				return fmt.Errorf("apply similarity_threshold: %w", err)
			}
		}
		if setter, ok := log.(observe.LevelSetter); ok && old.Observe.Logging.Level != updated.Observe.Logging.Level {
			setter.SetLevel(updated.Observe.Logging.Level)
		}
		return nil
	}
}

func restartOnly(old, updated *Config) []string {
	var fields []string
	oc, uc := old.CacheSettings(), updated.CacheSettings()
	oc.SimilarityThreshold, uc.SimilarityThreshold = 0, 0
	if oc != uc {
		fields = append(fields, "cache")
	}
	oo, uo := old.ObserveSettings(), updated.ObserveSettings()
	oo.Logging.Level, uo.Logging.Level = "", ""
	if oo != uo {
		fields = append(fields, "observe")
	}
	if old.Admin.Addr != updated.Admin.Addr ||
		old.Admin.JWT != updated.Admin.JWT ||
		len(old.Admin.APIKeys) != len(updated.Admin.APIKeys) {
		fields = append(fields, "admin")
	}
	return fields
}
