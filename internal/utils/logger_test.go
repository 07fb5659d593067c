package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestWriterLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "warn", false)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("source", "benchmark"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "source=benchmark") {
		t.Fatalf("expected warn record, got %q", out)
	}
}

func TestWriterLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, "debug", true).Debug("cycle", slog.Int("signals", 5))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected json record, got %q", buf.String())
	}
	if record["msg"] != "cycle" || record["signals"] != float64(5) {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("expected %v for %q, got %v", want, in, got)
		}
	}
}
