package cache

import (
	"context"

	"github.com/jonwraymond/answercache/health"
)

// HealthChecker reports the state of a SemanticCache.
type HealthChecker struct {
	name  string
	cache *SemanticCache
}

// NewHealthChecker creates a checker named "cache".
func NewHealthChecker(c *SemanticCache) *HealthChecker {
	return &HealthChecker{name: "cache", cache: c}
}

// Name implements health.Checker.
func (h *HealthChecker) Name() string {
	return h.name
}

// Check implements health.Checker. A closed cache is unhealthy. A cache
// that is disabled, running in memory only, or whose last save failed is
// degraded.
func (h *HealthChecker) Check(_ context.Context) health.Result {
	c := h.cache
	if c.Closed() {
		return health.Unhealthy("cache is closed", ErrClosed)
	}
	if !c.Enabled() {
		return health.Degraded("cache is disabled").WithDetails(map[string]any{"disabled": true})
	}

	st := c.Stats()
	hr := c.HitRateStats()
	details := map[string]any{
		"entries":        st.EntryCount,
		"hot_entries":    st.HotEntries,
		"hit_rate":       hr.HitRate,
		"total_lookups":  hr.TotalLookups,
		"dirty":          st.Dirty,
		"uptime_seconds": int64(c.uptime().Seconds()),
	}

	switch {
	case c.memoryOnly.Load():
		return health.Degraded("cache is running in memory only").WithDetails(details)
	case c.saveFailed.Load():
		return health.Degraded("last cache save failed").WithDetails(details)
	}
	return health.Healthy("cache is healthy").WithDetails(details)
}

var _ health.Checker = (*HealthChecker)(nil)
