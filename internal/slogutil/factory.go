package slogutil

import (
	"io"
	"log/slog"
	"os"

	"kaizen/internal/config"
	"kaizen/internal/paths"
)

// LoggerFactory creates loggers for the CLI, API and MCP entry points.
// Level precedence: CLI flag > config > info.
type LoggerFactory struct {
	dataDir  string
	config   *config.Config
	cliLevel *slog.Level
	stderr   io.Writer
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// CLI override was given.
func NewLoggerFactory(dataDir string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		dataDir:  dataDir,
		config:   cfg,
		cliLevel: cliLevel,
		stderr:   os.Stderr,
	}
}

// SetStderr redirects console output, mainly for tests.
func (f *LoggerFactory) SetStderr(w io.Writer) {
	f.stderr = w
}

// Level returns the effective level.
func (f *LoggerFactory) Level() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// CLILogger logs to stderr only.
func (f *LoggerFactory) CLILogger() *slog.Logger {
	return NewLoggerWithFormat(f.stderr, f.Level(), f.config.Logging.Format)
}

// APILogger logs to stderr and <dataDir>/logs/api.log.
func (f *LoggerFactory) APILogger() *slog.Logger {
	return f.teeToFile(paths.GetAPILogPath(f.dataDir))
}

// MCPLogger logs to stderr and, unless mcp.logFile is off,
// <dataDir>/logs/mcp.log. Stdout is reserved for the protocol.
func (f *LoggerFactory) MCPLogger() *slog.Logger {
	if !f.config.MCP.LogFile {
		return f.CLILogger()
	}
	return f.teeToFile(paths.GetMCPLogPath(f.dataDir))
}

// teeToFile falls back to stderr alone when the log file cannot be opened.
func (f *LoggerFactory) teeToFile(path string) *slog.Logger {
	console := NewHandler(f.stderr, f.Level(), f.config.Logging.Format)
	if f.dataDir == "" {
		return slog.New(console)
	}
	if _, err := paths.EnsureLogsDir(f.dataDir); err != nil {
		return slog.New(console)
	}
	fileLogger, closer, err := NewFileLoggerWithRotation(path, f.Level(),
		f.config.Logging.Format, f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	if err != nil {
		return slog.New(console)
	}
	f.closers = append(f.closers, closer)
	return NewTeeLogger(console, fileLogger.Handler())
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
