package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if tid := TraceID(ctx); tid != "" {
		t.Errorf("expected empty trace id, got %q", tid)
	}

	ctx = WithTraceID(ctx, "test-trace-123")
	if tid := TraceID(ctx); tid != "test-trace-123" {
		t.Errorf("expected 'test-trace-123', got %q", tid)
	}
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	tid := GenerateTraceID("mintA", ts)

	if tid == "" {
		t.Fatal("expected non-empty trace id")
	}
	if !strings.HasPrefix(tid, "mintA-") {
		t.Errorf("expected trace id to start with 'mintA-', got %s", tid)
	}
	if !strings.Contains(tid, "123456789") {
		t.Errorf("expected trace id to contain nanoseconds, got %s", tid)
	}
}

// TestTraceHandlerInjectsTraceID covers spec §10's ambient trace-ID
// propagation: a *Context log call made with a trace-bearing context carries
// trace_id in its JSON output without the caller passing the attribute by
// hand.
func TestTraceHandlerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	log := slog.New(traceHandler{base})

	ctx := WithTraceID(context.Background(), "mintA-42")
	log.WarnContext(ctx, "something failed", "error", "boom")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if rec["trace_id"] != "mintA-42" {
		t.Fatalf("expected trace_id=mintA-42 in log output, got %v", rec["trace_id"])
	}
}

// TestTraceHandlerOmitsAttrWithoutTraceID ensures a plain context (the
// common case for background/non-event-scoped logging) is not polluted with
// an empty trace_id attribute.
func TestTraceHandlerOmitsAttrWithoutTraceID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	log := slog.New(traceHandler{base})

	log.WarnContext(context.Background(), "something failed")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("expected no trace_id attribute, got %v", rec["trace_id"])
	}
}
