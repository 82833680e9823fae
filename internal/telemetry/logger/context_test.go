package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestConnID(t *testing.T) {
	if got := ConnID(context.Background()); got != "" {
		t.Errorf("ConnID(empty) = %q, want empty", got)
	}

	ctx := WithConnID(context.Background(), "a")
	ctx = WithConnID(ctx, "b")
	if got := ConnID(ctx); got != "b" {
		t.Errorf("ConnID() = %q, want innermost b", got)
	}
}

func TestContextHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(contextHandler{base}).With("component", "redis").WithGroup("req")

	ctx := WithConnID(context.Background(), "c1")
	l.WarnContext(ctx, "slow", "command", "get")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output %q is not JSON: %v", buf.String(), err)
	}
	if entry["component"] != "redis" {
		t.Errorf("component = %v, want redis", entry["component"])
	}
	group, ok := entry["req"].(map[string]any)
	if !ok {
		t.Fatalf("req group missing: %v", entry)
	}
	if group["command"] != "get" || group["conn_id"] != "c1" {
		t.Errorf("req group = %v, want command=get conn_id=c1", group)
	}
}
