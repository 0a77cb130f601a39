package observe

import (
	"context"
	"io"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", F("iteration", i))
	}
}

func BenchmarkLogger_FilteredDebug(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "dropped", F("iteration", i))
	}
}

func BenchmarkLogger_WithComponent(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = logger.WithComponent("index")
	}
}

func BenchmarkMetrics_RecordLookup(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := NewMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordLookup(ctx, OutcomeExact, time.Millisecond)
	}
}

func BenchmarkTracer_StartEnd(b *testing.B) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	tracer := NewTracer(tp.Tracer("bench"))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tracer.StartSpan(ctx, "lookup")
		tracer.EndSpan(span, nil)
	}
}

func BenchmarkInstruments_TrackNop(b *testing.B) {
	in := NopInstruments()
	ctx := context.Background()
	fn := func(context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = in.Track(ctx, "noop", fn)
	}
}
