package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoggerFromContext_DefaultsWithoutLogger(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != slog.Default() {
		t.Fatalf("expected slog.Default() for a bare context")
	}
	if ctx := WithLogger(context.Background(), nil); LoggerFromContext(ctx) != slog.Default() {
		t.Fatalf("nil logger should not be attached")
	}
}

func TestWithLogAttrs_AddsFieldsToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), base)
	ctx = WithLogAttrs(ctx, "run_id", "run-1", "username", "alice")
	ctx = WithLogAttrs(ctx, "phase", "comments")
	LoggerFromContext(ctx).Info("checking comment", "comment_id", "c1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"run_id":     "run-1",
		"username":   "alice",
		"phase":      "comments",
		"comment_id": "c1",
		"msg":        "checking comment",
	} {
		if got := entry[key]; got != want {
			t.Errorf("%s = %v, want %q", key, got, want)
		}
	}
}

func TestWithLogAttrs_NoArgsKeepsContext(t *testing.T) {
	ctx := context.Background()
	if got := WithLogAttrs(ctx); got != ctx {
		t.Fatalf("expected the same context when no attrs are given")
	}
}
