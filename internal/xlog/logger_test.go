package xlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"info", "debug", "trace"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(level, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewEvalTraceLogger_InfoReturnsNil(t *testing.T) {
	dir := t.TempDir()
	tl := NewEvalTraceLogger(dir, "info")
	if tl != nil {
		t.Error("NewEvalTraceLogger(info) should return nil")
	}
	// A nil logger must be safe to use.
	tl.LogDecision(0, "add", "add", "add", false)
	tl.Close()
}

func TestNewEvalTraceLogger_DebugWritesFile(t *testing.T) {
	dir := t.TempDir()
	tl := NewEvalTraceLogger(dir, "debug")
	if tl == nil {
		t.Fatal("NewEvalTraceLogger(debug) returned nil")
	}
	defer tl.Close()

	tl.LogDecision(2, "remove", "add", "remove", true)

	path := filepath.Join(dir, "trace.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading trace file: %v", err)
	}

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshaling trace line: %v", err)
	}

	if entry["index"] != float64(2) {
		t.Errorf("index = %v, want 2", entry["index"])
	}
	if entry["op"] != "remove" {
		t.Errorf("op = %v, want remove", entry["op"])
	}
	if entry["synthetic"] != true {
		t.Errorf("synthetic = %v, want true", entry["synthetic"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a time field")
	}
}

func TestEvalTraceLogger_NilSafe(t *testing.T) {
	var tl *EvalTraceLogger
	tl.LogDecision(0, "add", "add", "add", false)
	tl.Close()
}
