package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{" debug ", slog.LevelDebug},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}

	if _, err := ParseLevel("trace"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "scene", "cafe_stay")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn: %q", out)
	}
	if !strings.Contains(out, "scene=cafe_stay") {
		t.Errorf("expected text attrs, got %q", out)
	}
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "info", "json")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	logger.Info("hello", "bpm", 98.5)
	if !strings.Contains(buf.String(), `"bpm":98.5`) {
		t.Errorf("expected json output, got %q", buf.String())
	}
}

func TestNewWriterRejectsBadInput(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Error("expected level error")
	}
	if _, err := NewWriter(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected format error")
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "text", "json"} {
		if _, err := New("debug", format); err != nil {
			t.Errorf("format %q: %v", format, err)
		}
	}
	if _, err := New("info", "yaml"); err == nil {
		t.Error("expected format error")
	}
}
