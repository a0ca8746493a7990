// Package envelope provides the response wrapper shared by the CLI, HTTP and
// MCP surfaces. Every response carries its payload plus metadata about the
// resolved scope chain, truncation, warnings and suggested follow-up calls.
package envelope

import "kaizen/internal/errors"

// Resolution describes the scope chain a response was computed against.
type Resolution struct {
	Scope    string   `json:"scope"`
	Chain    []string `json:"chain"`
	TaskSize string   `json:"taskSize,omitempty"`
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Total       int    `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"` // "max-results"
}

// Meta holds response metadata.
type Meta struct {
	Resolution *Resolution `json:"resolution,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the structured form of a failed operation.
type ErrorInfo struct {
	Code           errors.ErrorCode   `json:"code"`
	Message        string             `json:"message"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// Response is the standard envelope for all responses.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *ErrorInfo      `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r.Error != nil
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
