package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kaizen/internal/config"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"invalid", 0},
		{"100", 100},
		{"100b", 100},
		{"10KB", 10240},
		{"1 mb", 1 << 20},
		{"1GB", 1 << 30},
		{"1.5MB", int64(1.5 * (1 << 20))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}

	line := []byte(strings.Repeat("a", 29) + "\n")
	for i := 0; i < 6; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("only 2 backups should be kept")
	}
}

func TestLoggerFactory(t *testing.T) {
	dataDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"

	var stderr bytes.Buffer
	f := NewLoggerFactory(dataDir, cfg, nil)
	f.SetStderr(&stderr)
	defer f.Close()

	if f.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug from config", f.Level())
	}

	logger := f.MCPLogger()
	logger.Info("mcp started", "tools", 14)

	if !strings.Contains(stderr.String(), "mcp started") {
		t.Errorf("stderr missing record: %q", stderr.String())
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dataDir, "logs", "mcp.log"))
	if err != nil {
		t.Fatalf("mcp.log not written: %v", err)
	}
	if !strings.Contains(string(data), "tools=14") {
		t.Errorf("mcp.log missing record: %q", data)
	}

	warn := slog.LevelWarn
	override := NewLoggerFactory(dataDir, cfg, &warn)
	if override.Level() != slog.LevelWarn {
		t.Errorf("CLI level should win, got %v", override.Level())
	}
}
