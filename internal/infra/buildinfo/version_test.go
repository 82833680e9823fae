package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	tests := []struct {
		name  string
		value string
	}{
		{"Version", info.Version},
		{"Commit", info.Commit},
		{"BuildTime", info.BuildTime},
		{"GoVersion", info.GoVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s field should not be empty", tt.name)
			}
		})
	}

	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	oldCommit, oldTime := Commit, BuildTime
	t.Cleanup(func() { Commit, BuildTime = oldCommit, oldTime })

	Commit = "abc123"
	BuildTime = "2026-01-01T00:00:00Z"

	info := Get()
	if info.Commit != "abc123" {
		t.Errorf("Commit = %q, want abc123", info.Commit)
	}
	if info.BuildTime != "2026-01-01T00:00:00Z" {
		t.Errorf("BuildTime = %q", info.BuildTime)
	}
}

func TestString(t *testing.T) {
	s := String()
	info := Get()

	if !strings.HasPrefix(s, info.Version+" (") {
		t.Errorf("String() = %q, want version prefix", s)
	}
	if !strings.Contains(s, " built at ") || !strings.HasSuffix(s, info.GoVersion) {
		t.Errorf("String() = %q, unexpected format", s)
	}
}

func TestShortRevision(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0123456789abcdef0123", "0123456789ab"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortRevision(tt.in); got != tt.want {
			t.Errorf("shortRevision(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
