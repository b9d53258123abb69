package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"freelanceos/pkg/trace"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithTrace_AddsTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := trace.WithContext(context.Background(), "abc123")
	WithTrace(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["trace_id"]; got != "abc123" {
		t.Errorf("expected trace_id field, got %v", got)
	}
}

func TestWithTrace_NoTraceKeepsLogger(t *testing.T) {
	base := zap.NewNop()
	if WithTrace(context.Background(), base) != base {
		t.Error("expected same logger when context has no trace id")
	}
}
