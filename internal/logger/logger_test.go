package logger

import (
	"context"
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
	ts := time.Date(2026, 3, 2, 10, 30, 0, 123456789, time.UTC)
	tid := GenerateTraceID("feed-abc", ts)

	if tid == "" {
		t.Fatal("expected non-empty trace id")
	}
	if !strings.HasPrefix(tid, "feed-abc-") {
		t.Errorf("expected trace id to start with 'feed-abc-', got %s", tid)
	}
	if !strings.Contains(tid, "123456789") {
		t.Errorf("expected trace id to contain nanoseconds, got %s", tid)
	}
}

func TestLogWithTrace(t *testing.T) {
	ctx := context.Background()

	attrs := LogWithTrace(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no trace id, got %v", attrs)
	}

	ctx = WithTraceID(ctx, "abc-123")
	attrs = LogWithTrace(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with trace id set")
	}
}
