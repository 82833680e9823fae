package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// restoreLevel puts the shared level back after a test changes it.
func restoreLevel(t *testing.T) {
	t.Helper()
	old := GetLevel()
	t.Cleanup(func() { _ = SetLevel(old) })
}

func TestNew_Formats(t *testing.T) {
	restoreLevel(t)

	tests := []struct {
		name    string
		format  string
		json    bool
		wantErr bool
	}{
		{"empty means json", "", true, false},
		{"json", "json", true, false},
		{"upper case text", "TEXT", false, false},
		{"console is text", "console", false, false},
		{"unknown", "xml", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: tt.format, Output: &buf})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(format %q) error = nil, want error", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			l.Info("hello", "key", "value")
			out := buf.String()
			if tt.json {
				var entry map[string]any
				if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
					t.Fatalf("output %q is not JSON: %v", out, err)
				}
				if entry["key"] != "value" {
					t.Errorf("key = %v, want value", entry["key"])
				}
			} else if !strings.Contains(out, "key=value") {
				t.Errorf("output %q missing key=value", out)
			}
		})
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	restoreLevel(t)
	_ = SetLevel("warn")

	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Fatal("New(level verbose) error = nil, want error")
	}
	if got := GetLevel(); got != "warn" {
		t.Errorf("GetLevel() after failed New = %q, want warn", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetLevel_ReachesExistingLoggers(t *testing.T) {
	restoreLevel(t)

	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	child := l.With("component", "store")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buf.String())
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	child.Debug("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("debug not logged after SetLevel(debug): %q", buf.String())
	}
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}

	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) error = nil, want error")
	}
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() after bad SetLevel = %q, want debug", got)
	}
}

func TestNew_OnlyContextCallsCarryConnID(t *testing.T) {
	restoreLevel(t)

	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithConnID(context.Background(), "01J9ZQ3W6J4Y")
	l.Info("plain")
	l.InfoContext(ctx, "tagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if strings.Contains(lines[0], "conn_id") {
		t.Errorf("plain call tagged: %q", lines[0])
	}
	if !strings.Contains(lines[1], "conn_id=01J9ZQ3W6J4Y") {
		t.Errorf("context call not tagged: %q", lines[1])
	}
}
