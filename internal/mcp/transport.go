package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxMessageSize is the maximum size for a single MCP message (1MB).
const MaxMessageSize = 1024 * 1024

// errMalformed marks a line that was read but could not be decoded
type errMalformed struct{ err error }

func (e *errMalformed) Error() string { return "error parsing JSON-RPC message: " + e.err.Error() }
func (e *errMalformed) Unwrap() error { return e.err }

// readMessage reads one newline-delimited JSON-RPC message. Blank lines are
// skipped.
func (s *MCPServer) readMessage() (*Message, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
	}

	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("error reading from stdin: %w", err)
			}
			return nil, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		s.logger.Debug("Received message", "bytes", len(line))

		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, &errMalformed{err: err}
		}
		return &msg, nil
	}
}

// writeMessage writes a JSON-RPC message followed by a newline
func (s *MCPServer) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}
	return nil
}

// writeError writes an error response
func (s *MCPServer) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(errorResponse(id, code, message))
}
