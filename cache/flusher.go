package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/answercache/observe"
	"github.com/jonwraymond/answercache/resilience"
)

// Flusher periodically saves a dirty cache.
//
// Contract:
//   - Concurrency: Start and Stop are safe to call from any goroutine.
//   - Lifecycle: Start is a no-op while running; Stop waits for the loop
//     to exit and may be called more than once.
type Flusher struct {
	cache    *SemanticCache
	interval time.Duration
	retry    *resilience.Retry
	log      observe.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// FlusherOption configures a Flusher.
type FlusherOption func(*Flusher)

// WithFlushInterval overrides Config.FlushInterval.
func WithFlushInterval(d time.Duration) FlusherOption {
	return func(f *Flusher) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithFlushRetry sets the retry policy applied to each failed save.
func WithFlushRetry(r *resilience.Retry) FlusherOption {
	return func(f *Flusher) { f.retry = r }
}

// NewFlusher creates a Flusher for c. By default a failed save is retried
// twice with exponential backoff before waiting for the next tick.
func NewFlusher(c *SemanticCache, opts ...FlusherOption) *Flusher {
	f := &Flusher{
		cache:    c,
		interval: c.cfg.FlushInterval,
		log:      c.in.Logger.WithComponent("flusher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.retry == nil {
		f.retry = resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
			RetryIf: func(err error) bool {
				return errors.Is(err, ErrSave)
			},
		})
	}
	return f
}

// Start launches the flush loop. It stops when ctx ends or Stop is called.
func (f *Flusher) Start(ctx context.Context) {
	if !f.cache.Enabled() {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(ctx, f.done)
}

// Stop ends the flush loop and waits for it to exit.
func (f *Flusher) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (f *Flusher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.log.Debug(ctx, "flusher started", observe.F("interval", f.interval.String()))
	for {
		select {
		case <-ctx.Done():
			f.log.Debug(context.WithoutCancel(ctx), "flusher stopped")
			return
		case <-ticker.C:
			f.Flush(ctx)
		}
	}
}

// Flush saves the cache if it is dirty, retrying failed saves. Errors are
// logged and returned.
func (f *Flusher) Flush(ctx context.Context) error {
	err := f.retry.Execute(ctx, f.cache.FlushIfDirty)
	if err != nil && ctx.Err() == nil {
		f.log.Warn(ctx, "periodic flush failed", observe.Err(err))
	}
	return err
}
