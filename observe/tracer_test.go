package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSpanName(t *testing.T) {
	if got := SpanName("insert"); got != "answercache.insert" {
		t.Errorf("SpanName = %q", got)
	}
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), "refresh", attribute.String("cache.hash", "abc"))
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "answercache.refresh" {
		t.Errorf("name = %q", s.Name())
	}
	if v, ok := attrValue(s.Attributes(), "cache.op"); !ok || v.AsString() != "refresh" {
		t.Errorf("cache.op = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), "cache.hash"); !ok || v.AsString() != "abc" {
		t.Errorf("cache.hash = %v", v)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_RecordsError(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), "save")
	tracer.EndSpan(span, errors.New("rename failed"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if s.Status().Description != "rename failed" {
		t.Errorf("description = %q", s.Status().Description)
	}
	if v, ok := attrValue(s.Attributes(), "cache.error"); !ok || !v.AsBool() {
		t.Errorf("cache.error = %v, want true", v)
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestTracer_ChildSpanSharesTrace(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	ctx, parent := tracer.StartSpan(context.Background(), "insert")
	_, child := tracer.StartSpan(ctx, "save")
	tracer.EndSpan(child, nil)
	tracer.EndSpan(parent, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].SpanContext().TraceID() != spans[1].SpanContext().TraceID() {
		t.Error("child and parent should share a trace ID")
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("save span should be a child of insert")
	}
}
