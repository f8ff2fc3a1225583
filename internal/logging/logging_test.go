package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModuleLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(Config{
		Level:   "error",
		Format:  "json",
		Modules: map[string]string{"capture-test": "debug"},
	}, &buf)
	t.Cleanup(func() { SetupWriter(Config{}, &bytes.Buffer{}) })

	For("capture-test").Debug("visible", "width", 800)
	For("quiet-test").Info("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["module"] != "capture-test" || rec["msg"] != "visible" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestForReturnsSameLogger(t *testing.T) {
	if For("same") != For("same") {
		t.Error("For should cache module loggers")
	}
}
