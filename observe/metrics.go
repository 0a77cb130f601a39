package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lookup outcomes.
const (
	OutcomeHot     = "hot"
	OutcomeExact   = "exact"
	OutcomeSimilar = "similar"
	OutcomeMiss    = "miss"
)

// Insert results.
const (
	InsertStored   = "stored"
	InsertRejected = "rejected"
	InsertBusy     = "busy"
)

// Eviction policies.
const (
	PolicyLRU   = "lru"
	PolicySweep = "sweep"
	PolicyClear = "clear"
)

// Metrics records cache events.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly and never block on export.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one lookup with its outcome and latency.
	RecordLookup(ctx context.Context, outcome string, duration time.Duration)

	// RecordInsert records one insert attempt.
	RecordInsert(ctx context.Context, result string)

	// RecordEviction records n entries removed under policy.
	RecordEviction(ctx context.Context, policy string, n int)

	// RecordSave records a persistence attempt; err is nil on success.
	RecordSave(ctx context.Context, err error)
}

type metricsImpl struct {
	lookups   metric.Int64Counter
	lookupDur metric.Float64Histogram
	inserts   metric.Int64Counter
	evictions metric.Int64Counter
	saves     metric.Int64Counter
}

// NewMetrics creates otel instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"answercache.lookups",
		metric.WithDescription("Cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	lookupDur, err := meter.Float64Histogram(
		"answercache.lookup.duration_ms",
		metric.WithDescription("Cache lookup duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	inserts, err := meter.Int64Counter(
		"answercache.inserts",
		metric.WithDescription("Cache insert attempts by result"),
		metric.WithUnit("{insert}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"answercache.evictions",
		metric.WithDescription("Entries removed by policy"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	saves, err := meter.Int64Counter(
		"answercache.saves",
		metric.WithDescription("Persistence attempts by result"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:   lookups,
		lookupDur: lookupDur,
		inserts:   inserts,
		evictions: evictions,
		saves:     saves,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, outcome string, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("outcome", outcome))
	m.lookups.Add(ctx, 1, opt)
	m.lookupDur.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordInsert(ctx context.Context, result string) {
	m.inserts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metricsImpl) RecordEviction(ctx context.Context, policy string, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("policy", policy)))
}

func (m *metricsImpl) RecordSave(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) RecordLookup(context.Context, string, time.Duration) {}
func (nopMetrics) RecordInsert(context.Context, string)                {}
func (nopMetrics) RecordEviction(context.Context, string, int)         {}
func (nopMetrics) RecordSave(context.Context, error)                   {}
