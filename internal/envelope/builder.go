package envelope

import (
	stderrors "errors"
	"time"

	"kaizen/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
		},
	}
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Data sets the payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// WithResolution records the target scope and its chain.
func (b *Builder) WithResolution(scope string, chain []string, taskSize string) *Builder {
	if scope == "" {
		return b
	}
	b.meta().Resolution = &Resolution{Scope: scope, Chain: chain, TaskSize: taskSize}
	return b
}

// WithTruncation adds truncation metadata.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// WithDuration records how long the operation took.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.meta().DurationMs = d.Milliseconds()
	return b
}

// Suggest adds a follow-up tool call.
func (b *Builder) Suggest(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Error sets the error field. Coded errors keep their code, details and
// fixes, and their call-tool fixes become suggested calls.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	var ke *errors.KaizenError
	if !stderrors.As(err, &ke) {
		b.resp.Error = &ErrorInfo{Code: errors.InternalError, Message: err.Error()}
		return b
	}

	b.resp.Error = &ErrorInfo{
		Code:           ke.Code,
		Message:        ke.Error(),
		Details:        ke.Details,
		SuggestedFixes: ke.SuggestedFixes,
	}
	for _, fix := range ke.SuggestedFixes {
		if fix.Type == errors.CallTool && fix.Tool != "" {
			b.Suggest(fix.Tool, nil, fix.Description)
		}
	}
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational creates a plain envelope for payloads without metadata.
func Operational(data interface{}) *Response {
	return New().Data(data).Build()
}

// Failure creates an envelope holding only err.
func Failure(err error) *Response {
	return New().Error(err).Build()
}
