package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kaizen/internal/auth"
	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
	"kaizen/internal/storage"
)

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// Deps are the collaborators the handlers call into
type Deps struct {
	DB     *storage.DB
	Repos  *storage.Repositories
	Engine *knowledge.Engine
	Auth   *auth.Manager
	Guard  *secrets.Guard // nil disables secret scanning
}

// Server represents the HTTP API server
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	addr      string
	logger    *slog.Logger
	deps      Deps
	startedAt time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(cfg ServerConfig, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		addr:      cfg.Addr,
		logger:    logger,
		deps:      deps,
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router, cfg.CORSOrigins)
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler; the last wrapper runs first
func (s *Server) applyMiddleware(handler http.Handler, origins []string) http.Handler {
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware(origins)(handler)
	return handler
}
