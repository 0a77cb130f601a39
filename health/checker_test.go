package health

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatus_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Status{"s": StatusDegraded})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"s":"degraded"}` {
		t.Errorf("json = %s", b)
	}
}

func TestWorst(t *testing.T) {
	if Worst(StatusHealthy, StatusDegraded) != StatusDegraded {
		t.Error("degraded should beat healthy")
	}
	if Worst(StatusUnhealthy, StatusDegraded) != StatusUnhealthy {
		t.Error("unhealthy should beat degraded")
	}
}

func TestResultConstructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name   string
		result Result
		status Status
		err    error
	}{
		{"healthy", Healthy("fine"), StatusHealthy, nil},
		{"degraded", Degraded("slow"), StatusDegraded, nil},
		{"unhealthy", Unhealthy("down", cause), StatusUnhealthy, cause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.status || tt.result.Error != tt.err {
				t.Errorf("got %+v", tt.result)
			}
			if tt.result.Timestamp.IsZero() {
				t.Error("Timestamp not set")
			}
		})
	}

	r := Healthy("x").WithDetails(map[string]any{"k": 1}).WithDuration(time.Second)
	if r.Details["k"] != 1 || r.Duration != time.Second {
		t.Errorf("builders = %+v", r)
	}
}

type ctxKey struct{}

func TestCheckerFunc(t *testing.T) {
	var got context.Context
	c := NewCheckerFunc("fn", func(ctx context.Context) Result {
		got = ctx
		return Degraded("meh")
	})
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	if c.Name() != "fn" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(ctx); r.Status != StatusDegraded {
		t.Errorf("Check() = %+v", r)
	}
	if got != ctx {
		t.Error("context not passed through")
	}
}
