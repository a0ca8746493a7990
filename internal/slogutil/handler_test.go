package slogutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestHumanHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Resolved knowledge", "scope", "acme:web", "count", 3, "query", "react hooks")

	output := buf.String()
	for _, want := range []string{"[info]", "Resolved knowledge", " | scope=acme:web", "count=3", `query="react hooks"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("expected trailing newline, got: %q", output)
	}
}

func TestHumanHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).WithGroup("http").With("route", "/resolve")

	logger.Info("request", slog.Group("resp", "status", 200))

	output := buf.String()
	if !strings.Contains(output, "http.route=/resolve") {
		t.Errorf("expected grouped attr, got: %s", output)
	}
	if !strings.Contains(output, "http.resp.status=200") {
		t.Errorf("expected nested group attr, got: %s", output)
	}
}

func TestHumanHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn should be filtered: %s", output)
	}
	if !strings.Contains(output, "[warn] warn message") || !strings.Contains(output, "[error] error message") {
		t.Errorf("warn and error should be included: %s", output)
	}
}

func TestNewLoggerWithFormat_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithFormat(&buf, slog.LevelInfo, "json")
	logger.Info("hello", "scope", "global:default")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["scope"] != "global:default" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{5, true, silent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	logger := NewTeeLogger(
		NewHumanHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		NewHumanHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	).With("component", "api")

	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(infoBuf.String(), "info message") || !strings.Contains(infoBuf.String(), "warn message") {
		t.Errorf("info handler missing records: %s", infoBuf.String())
	}
	if strings.Contains(warnBuf.String(), "info message") {
		t.Error("warn handler should not receive info records")
	}
	if !strings.Contains(warnBuf.String(), "component=api") {
		t.Errorf("attrs should reach every handler: %s", warnBuf.String())
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled for any level")
	}
}
