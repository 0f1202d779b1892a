// Package xlog provides leveled logging and block-decision tracing for
// xforge. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EvalTraceLogger for structured JSONL decision traces (.xforge/trace.jsonl)
package xlog

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full condition/value
// snapshot logging.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EvalTraceLogger writes one JSONL record per block decision to
// dir/trace.jsonl. It is safe for concurrent use. A nil EvalTraceLogger is
// safe to use; all methods are no-ops on a nil receiver, so callers (such
// as cmd/xforge's evaluateScript) never need to check for nil before
// logging a decision.
type EvalTraceLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewEvalTraceLogger creates a trace logger writing to dir/trace.jsonl.
// At "info" level (the default) returns nil — no file is created. At
// "debug" or "trace" the file is opened for append. Returns nil if the
// file cannot be opened.
func NewEvalTraceLogger(dir string, level string) *EvalTraceLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "trace.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EvalTraceLogger{file: f}
}

// LogDecision writes one block-decision event as a single JSONL line.
// index is the block's position in the evaluator's returned (surviving)
// block list, not in the source list; op/targetOp/globalOp
// describe the decision testBlock reached, and synthetic marks a
// compensation block that did not exist in the original source. A "time"
// field is added automatically. Safe to call on a nil receiver.
func (tl *EvalTraceLogger) LogDecision(index int, op, targetOp, globalOp string, synthetic bool) {
	if tl == nil || tl.file == nil {
		return
	}

	entry := map[string]any{
		"time":      time.Now().UTC().Format(time.RFC3339Nano),
		"index":     index,
		"op":        op,
		"targetOp":  targetOp,
		"globalOp":  globalOp,
		"synthetic": synthetic,
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on a nil receiver.
func (tl *EvalTraceLogger) Close() {
	if tl == nil || tl.file == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.file.Close()
	tl.file = nil
}
