package health

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
)

// MemoryCheckerConfig configures MemoryChecker. Thresholds are fractions
// of the heap limit.
type MemoryCheckerConfig struct {
	// WarningThreshold marks the check degraded. Default: 0.8.
	WarningThreshold float64

	// CriticalThreshold marks the check unhealthy. Default: 0.95.
	CriticalThreshold float64

	// Limit is the heap size the thresholds refer to, in bytes. Zero uses
	// the runtime memory limit (GOMEMLIMIT), or memory obtained from the
	// OS when no limit is set.
	Limit uint64
}

// MemoryChecker reports heap usage against a limit.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a MemoryChecker. Out-of-range thresholds take
// their defaults and a critical threshold below the warning threshold is
// raised to match it.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	config.CriticalThreshold = max(config.CriticalThreshold, config.WarningThreshold)
	return &MemoryChecker{config: config}
}

func (m *MemoryChecker) Name() string {
	return "memory"
}

func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	limit := m.limit(stats.Sys)
	if limit == 0 {
		return Healthy("memory limit unknown")
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"limit_bytes":      limit,
		"usage_percent":    math.Round(ratio*1000) / 10,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}
	msg := fmt.Sprintf("heap at %.1f%% of limit", ratio*100)

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(msg).WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}

func (m *MemoryChecker) limit(sys uint64) uint64 {
	if m.config.Limit > 0 {
		return m.config.Limit
	}
	// SetMemoryLimit with a negative value only reads the current limit.
	if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
		return uint64(l)
	}
	return sys
}
