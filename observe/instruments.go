package observe

import (
	"context"
	"time"
)

// Instruments bundles the tracer, metrics and logger a component reports to.
// The zero value is not usable; build one with InstrumentsFromObserver or
// NopInstruments.
type Instruments struct {
	Tracer  Tracer
	Metrics Metrics
	Logger  Logger
}

// InstrumentsFromObserver creates Instruments from an Observer.
func InstrumentsFromObserver(obs Observer) (Instruments, error) {
	if obs == nil {
		return Instruments{}, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return Instruments{}, err
	}

	return Instruments{
		Tracer:  NewTracer(obs.Tracer()),
		Metrics: metrics,
		Logger:  obs.Logger(),
	}, nil
}

// NopInstruments returns Instruments that discard everything.
func NopInstruments() Instruments {
	return Instruments{
		Tracer:  NopTracer(),
		Metrics: NopMetrics(),
		Logger:  NopLogger(),
	}
}

// WithDefaults fills any nil member with its no-op counterpart.
func (in Instruments) WithDefaults() Instruments {
	if in.Tracer == nil {
		in.Tracer = NopTracer()
	}
	if in.Metrics == nil {
		in.Metrics = NopMetrics()
	}
	if in.Logger == nil {
		in.Logger = NopLogger()
	}
	return in
}

// Track runs fn inside an answercache.<op> span and logs the outcome.
// Failures are logged at error level, successes at debug level. The error
// from fn is returned unchanged.
func (in Instruments) Track(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := in.Tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	in.Tracer.EndSpan(span, err)

	fields := []Field{
		F("op", op),
		F("duration_ms", float64(time.Since(start).Microseconds())/1000),
	}
	if err != nil {
		in.Logger.Error(ctx, "operation failed", append(fields, Err(err))...)
	} else {
		in.Logger.Debug(ctx, "operation completed", fields...)
	}
	return err
}
