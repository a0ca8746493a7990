package mcp

import (
	"bufio"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
	"kaizen/internal/storage"
)

// Deps are the collaborators the tools call into
type Deps struct {
	DB     *storage.DB
	Repos  *storage.Repositories
	Engine *knowledge.Engine
	Guard  *secrets.Guard // nil disables secret scanning
}

// MCPServer serves the knowledge tools over stdio
type MCPServer struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex
	logger  *slog.Logger
	version string
	deps    Deps
	tools   map[string]ToolHandler
}

// NewMCPServer creates a new MCP server reading os.Stdin and writing os.Stdout
func NewMCPServer(version string, deps Deps, logger *slog.Logger) *MCPServer {
	server := &MCPServer{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger,
		version: version,
		deps:    deps,
		tools:   make(map[string]ToolHandler),
	}
	server.RegisterTools()
	return server
}

// Start processes messages until stdin is closed
func (s *MCPServer) Start() error {
	s.logger.Info("MCP server starting", "version", s.version, "tools", len(s.tools))

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			var malformed *errMalformed
			if stderrors.As(err, &malformed) {
				s.logger.Warn("Malformed message", "error", err.Error())
				_ = s.writeError(nil, ParseError, err.Error())
				continue
			}
			s.logger.Error("Error reading message", "error", err.Error())
			return err
		}

		response := s.handleMessage(msg)

		// Notifications don't generate responses
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", "error", err.Error())
			}
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}
