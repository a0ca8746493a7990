package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kaizen/internal/auth"
	"kaizen/internal/config"
	"kaizen/internal/envelope"
	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
	"kaizen/internal/paths"
	"kaizen/internal/secrets"
	"kaizen/internal/slogutil"
	"kaizen/internal/storage"
)

// app holds the collaborators a command needs
type app struct {
	dataDir string
	config  *config.Config
	logs    *slogutil.LoggerFactory
	logger  *slog.Logger
	db      *storage.DB
	repos   *storage.Repositories
	engine  *knowledge.Engine
	guard   *secrets.Guard
}

// loggerKind selects which log sinks a command writes to
type loggerKind int

const (
	cliLogs loggerKind = iota
	apiLogs
	mcpLogs
)

// newApp resolves the data directory, loads configuration and opens the
// store. Callers must Close the app.
func newApp(kind loggerKind) (*app, error) {
	dataDir, err := paths.GetDataDir(dataDirFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if _, err := paths.EnsureDataDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := config.LoadConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cliLevel()
	if level == nil && kind == cliLogs {
		// Interactive commands stay quiet unless asked
		warn := slog.LevelWarn
		level = &warn
	}
	logs := slogutil.NewLoggerFactory(dataDir, cfg, level)
	var logger *slog.Logger
	switch kind {
	case apiLogs:
		logger = logs.APILogger()
	case mcpLogs:
		logger = logs.MCPLogger()
	default:
		logger = logs.CLILogger()
	}

	db, err := storage.Open(dataDir, logger)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{
		dataDir: dataDir,
		config:  cfg,
		logs:    logs,
		logger:  logger,
		db:      db,
		repos:   storage.NewRepositories(db),
		engine:  knowledge.NewEngine(db, cfg.EngineConfig(), logger),
		guard:   secrets.NewGuard(cfg.SecretPolicy(), logger),
	}, nil
}

// Close releases the store and log files
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", "error", err.Error())
	}
	_ = a.logs.Close()
}

// authManager builds the auth manager from the api section
func (a *app) authManager() *auth.Manager {
	rl := auth.DefaultRateLimitConfig()
	rl.Enabled = a.config.API.RateLimit.Enabled
	rl.RequestsPerSecond = a.config.API.RateLimit.RequestsPerSecond
	rl.Burst = a.config.API.RateLimit.Burst

	return auth.NewManager(auth.ManagerConfig{
		RequireAuth:  a.config.API.RequireAuth,
		RateLimiting: rl,
	}, auth.NewKeyStore(a.db.Conn(), a.logger), a.logger)
}

// cliLevel returns the level override from -v and --quiet, or nil
func cliLevel() *slog.Level {
	if verboseCount == 0 && !quietFlag {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verboseCount, quietFlag)
	return &level
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// withApp opens the app, runs fn and prints its envelope
func withApp(fn func(a *app) (*envelope.Response, error)) error {
	a, err := newApp(cliLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := fn(a)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

// errNothingToUpdate rejects an update command without any change flag
func errNothingToUpdate(flags ...string) error {
	return errors.NewInvalidParameterError("flags",
		"at least one of "+strings.Join(flags, ", ")+" must be given")
}
