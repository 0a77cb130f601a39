package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds a full CheckAll. Default: 10s.
	Timeout time.Duration

	// MaxConcurrent limits checks running at once. 1 runs them in
	// registration order. Default: unlimited.
	MaxConcurrent int
}

// Aggregator runs a set of named checkers and combines their results.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Aggregator{config: cfg, checkers: make(map[string]Checker)}
}

// Register adds checker under its own name, replacing any checker already
// registered under that name.
func (a *Aggregator) Register(checker Checker) error {
	if checker == nil {
		return ErrNilChecker
	}
	name := checker.Name()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.checkers[name]; !ok {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
	return nil
}

// Unregister removes the named checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.checkers[name]; !ok {
		return
	}
	delete(a.checkers, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs one named checker.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// Report is the combined outcome of CheckAll.
type Report struct {
	Status    Status
	Results   map[string]Result
	CheckedAt time.Time
}

// CheckAll runs every registered checker. A checker still running at the
// deadline is reported unhealthy with ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	names := append([]string(nil), a.order...)
	checkers := make([]Checker, len(names))
	for i, n := range names {
		checkers[i] = a.checkers[n]
	}
	a.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Results:   make(map[string]Result, len(names)),
		CheckedAt: time.Now(),
	}
	if len(names) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	if a.config.MaxConcurrent > 0 {
		g.SetLimit(a.config.MaxConcurrent)
	}
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	for i, n := range names {
		report.Results[n] = results[i]
		report.Status = Worst(report.Status, results[i].Status)
	}
	return report
}

// runCheck calls checker and stops waiting once ctx is done.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- checker.Check(ctx)
	}()

	select {
	case r := <-done:
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		return r.WithDuration(time.Since(start))
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.Timestamp = start
		return r.WithDuration(time.Since(start))
	}
}

// Checker exposes the aggregator as a single Checker named "aggregate".
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		report := a.CheckAll(ctx)
		details := make(map[string]any, len(report.Results))
		for name, r := range report.Results {
			details[name] = r.Status.String()
		}

		var res Result
		switch report.Status {
		case StatusHealthy:
			res = Healthy("all checks passed")
		case StatusDegraded:
			res = Degraded("some checks degraded")
		default:
			res = Unhealthy("some checks failed", ErrCheckFailed)
		}
		return res.WithDetails(details)
	})
}
