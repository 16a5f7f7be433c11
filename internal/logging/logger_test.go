package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"retell/internal/services"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	logger := slog.New(newConsoleHandler(&buf, level))

	logger = NewComponentLogger(logger, "fetch")
	logger.Info("track selected",
		String("lang", "en"),
		Int("candidates", 3),
		Bool("manual", true),
	)

	line := buf.String()
	if !strings.Contains(line, " INFO fetch: track selected") {
		t.Fatalf("unexpected line %q", line)
	}
	for _, fragment := range []string{"lang=en", "candidates=3", "manual=true"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level))

	logger.Warn("template missing", String("path", "my dir/story_core_prompt.txt"))

	if !strings.Contains(buf.String(), `path="my dir/story_core_prompt.txt"`) {
		t.Fatalf("expected quoted value in %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, level))

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info record suppressed, got %q", buf.String())
	}
	logger.Error("visible")
	if !strings.Contains(buf.String(), "ERROR") {
		t.Fatalf("expected error record, got %q", buf.String())
	}
}

func TestJSONHandlerFieldNames(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, level))

	logger.Info("run complete", String("run_id", "abc"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["msg"] != "run complete" {
		t.Fatalf("unexpected msg field: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level field: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts field")
	}
	if payload["run_id"] != "abc" {
		t.Fatalf("unexpected run_id: %v", payload["run_id"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for input, expect := range cases {
		if got := parseLevel(input); got != expect {
			t.Fatalf("parseLevel(%q): expected %v, got %v", input, expect, got)
		}
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level))

	ctx := services.WithRunID(context.Background(), "run-9")
	ctx = services.WithStage(ctx, "narrate")
	WithContext(ctx, logger).Info("stage done")

	line := buf.String()
	if !strings.Contains(line, "run_id=run-9") || !strings.Contains(line, "stage=narrate") {
		t.Fatalf("expected context fields in %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
}

func TestConsoleHandlerGroupFlattening(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level)).WithGroup("stats")

	logger.Info("cleaned", Int("removed", 12))

	if !strings.Contains(buf.String(), "stats.removed=12") {
		t.Fatalf("expected flattened group key in %q", buf.String())
	}
}

func TestConsoleHandlerTimestampUTC(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	handler := newConsoleHandler(&buf, level)

	record := slog.NewRecord(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "tick", 0)
	if err := handler.Handle(context.Background(), record); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "2025-03-01T12:00:00Z INFO tick") {
		t.Fatalf("unexpected prefix %q", buf.String())
	}
}
