package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/answercache/observe"
	"github.com/jonwraymond/answercache/resilience"
)

// GenerateFunc produces an answer for a question. It is the expensive call
// the cache sits in front of.
type GenerateFunc func(ctx context.Context, question string) (string, error)

// Source says where an Answer came from.
type Source string

const (
	// SourceCache is an answer served from the cache.
	SourceCache Source = "cache"
	// SourceGenerated is an answer produced by the generator on a miss.
	SourceGenerated Source = "generated"
)

// Answer is the result of Responder.Answer.
type Answer struct {
	Text   string `json:"text"`
	Source Source `json:"source"`

	// Match is set for cache answers.
	Match *Match `json:"match,omitempty"`

	// Stale reports a cache answer that is due for refresh. A background
	// refresh has been scheduled unless the refresh pool was full.
	Stale bool `json:"stale,omitempty"`
}

// ResponderConfig configures a Responder. Zero fields take defaults.
type ResponderConfig struct {
	// GenerateTimeout bounds each generator attempt. Default: 30s.
	GenerateTimeout time.Duration

	// MaxAttempts counts the first generator call. Default: 2.
	MaxAttempts int

	// RetryDelay is the wait before the second attempt. Default: 200ms.
	RetryDelay time.Duration

	// BreakerFailures is the number of consecutive failed generations that
	// stop further calls for BreakerReset. Default: 5.
	BreakerFailures int

	// BreakerReset defaults to 30s.
	BreakerReset time.Duration

	// MaxConcurrentRefreshes caps background refreshes. Default: 4.
	MaxConcurrentRefreshes int
}

func (c ResponderConfig) withDefaults() ResponderConfig {
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = 30 * time.Second
	}
	if c.MaxConcurrentRefreshes <= 0 {
		c.MaxConcurrentRefreshes = 4
	}
	return c
}

// Responder answers questions from the cache and falls back to a generator
// on a miss. Generated answers are cached; generator errors are not.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent misses for the same
//     question share one generator call.
//   - Context: a caller whose ctx ends gets ctx.Err() without cancelling
//     the shared generation, which still caches its answer for the others.
//   - Lifecycle: Close waits for background refreshes and in-flight
//     generations. Answer fails with ErrClosed afterwards.
type Responder struct {
	cache     *SemanticCache
	generate  GenerateFunc
	exec      *resilience.Executor
	refreshes *resilience.Bulkhead
	group     singleflight.Group
	log       observe.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewResponder creates a Responder over c.
func NewResponder(c *SemanticCache, gen GenerateFunc, cfg ResponderConfig) (*Responder, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil cache", ErrInvalidConfig)
	}
	if gen == nil {
		return nil, ErrNoGenerator
	}
	cfg = cfg.withDefaults()

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.BreakerFailures,
		ResetTimeout: cfg.BreakerReset,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
	})
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.RetryDelay,
		Jitter:       true,
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded) &&
				!errors.Is(err, ErrInvalidValue)
		},
	})

	base, cancel := context.WithCancel(context.Background())
	return &Responder{
		cache:    c,
		generate: gen,
		exec: resilience.NewExecutor(
			resilience.WithCircuitBreaker(breaker),
			resilience.WithRetry(retry),
			resilience.WithTimeout(cfg.GenerateTimeout),
		),
		refreshes: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: cfg.MaxConcurrentRefreshes}),
		log:       c.in.Logger.WithComponent("responder"),
		base:      base,
		cancel:    cancel,
	}, nil
}

// Answer returns a cached answer for question, or generates, caches and
// returns a new one. A stale cached answer is returned as is and refreshed
// in the background.
func (r *Responder) Answer(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("%w: question is required", ErrInvalidValue)
	}
	if r.isClosed() {
		return Answer{}, ErrClosed
	}

	if m, ok := r.cache.Lookup(ctx, question); ok {
		stale := r.cache.IsStale(m.Entry)
		if stale {
			r.scheduleRefresh(m)
		}
		return Answer{Text: m.Entry.Answer, Source: SourceCache, Match: m, Stale: stale}, nil
	}

	key, err := r.cache.Key(question)
	if err != nil {
		key = Normalize(question)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Answer{}, ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	// The shared generation outlives any single caller: it runs detached
	// from ctx and each caller stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan("answer:"+key, func() (any, error) {
		text, err := r.generateText(shared, question)
		if err != nil {
			return "", err
		}
		if _, err := r.cache.Insert(shared, question, text); err != nil {
			r.log.Warn(shared, "caching generated answer failed", observe.Err(err))
		}
		return text, nil
	})

	select {
	case res := <-ch:
		r.wg.Done()
		if res.Err != nil {
			return Answer{}, res.Err
		}
		if res.Shared {
			r.log.Debug(ctx, "generated answer shared", observe.F("key", key))
		}
		return Answer{Text: res.Val.(string), Source: SourceGenerated}, nil
	case <-ctx.Done():
		go func() {
			<-ch
			r.wg.Done()
		}()
		return Answer{}, ctx.Err()
	}
}

// BreakerState reports the generator circuit breaker state.
func (r *Responder) BreakerState() resilience.State {
	return r.exec.CircuitBreaker().State()
}

// Close stops scheduling refreshes and waits for running refreshes and
// generations to finish. Each generator attempt is bounded by
// GenerateTimeout.
func (r *Responder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	r.cancel()
}

func (r *Responder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Responder) generateText(ctx context.Context, question string) (string, error) {
	var text string
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		t, err := r.generate(ctx, question)
		if err != nil {
			return err
		}
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: generator returned an empty answer", ErrInvalidValue)
		}
		text = t
		return nil
	})
	return text, err
}

// scheduleRefresh regenerates the matched entry in the background. It
// gives up silently when the refresh pool is full or the responder closed.
func (r *Responder) scheduleRefresh(m *Match) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if !r.refreshes.TryAcquire() {
		r.mu.Unlock()
		r.log.Debug(r.base, "refresh pool full, serving stale answer", observe.F("hash", m.Hash))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	hash, question := m.Hash, m.Entry.Question
	go func() {
		defer r.wg.Done()
		defer r.refreshes.Release()

		_, _, _ = r.group.Do("refresh:"+hash, func() (any, error) {
			text, err := r.generateText(r.base, question)
			if err != nil {
				r.log.Warn(r.base, "background refresh failed", observe.F("hash", hash), observe.Err(err))
				return nil, err
			}
			if _, err := r.cache.Refresh(r.base, hash, text); err != nil {
				r.log.Warn(r.base, "storing refreshed answer failed", observe.F("hash", hash), observe.Err(err))
				return nil, err
			}
			return nil, nil
		})
	}()
}
