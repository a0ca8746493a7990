package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ScopeNotFound indicates the referenced scope does not exist
	ScopeNotFound ErrorCode = "SCOPE_NOT_FOUND"
	// NamespaceNotFound indicates the referenced namespace does not exist
	NamespaceNotFound ErrorCode = "NAMESPACE_NOT_FOUND"
	// EntryNotFound indicates the referenced knowledge entry does not exist
	EntryNotFound ErrorCode = "ENTRY_NOT_FOUND"
	// ConflictNotFound indicates the referenced conflict record does not exist
	ConflictNotFound ErrorCode = "CONFLICT_NOT_FOUND"
	// InvalidTaskSizeFilter indicates a task size outside XS..XL
	InvalidTaskSizeFilter ErrorCode = "INVALID_TASK_SIZE_FILTER"
	// CycleRejected indicates a parent mutation would make the scope graph cyclic
	CycleRejected ErrorCode = "CYCLE_REJECTED"
	// ConflictRecordInvalid indicates a malformed conflict record
	ConflictRecordInvalid ErrorCode = "CONFLICT_RECORD_INVALID"
	// AlreadyExists indicates a namespace or scope name is taken
	AlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ScopeInUse indicates a scope is still referenced as a parent
	ScopeInUse ErrorCode = "SCOPE_IN_USE"
	// ProtectedResource indicates an attempt to modify a built-in namespace or scope
	ProtectedResource ErrorCode = "PROTECTED_RESOURCE"
	// InvalidParameter indicates a malformed request parameter
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// SecretDetected indicates knowledge text that contains a credential
	SecretDetected ErrorCode = "SECRET_DETECTED"
	// GraphInconsistent indicates the stored scope graph violates its invariants
	GraphInconsistent ErrorCode = "GRAPH_INCONSISTENT"
	// Unauthorized indicates a missing or invalid API token
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// Forbidden indicates a token without the required permission
	Forbidden ErrorCode = "FORBIDDEN"
	// RateLimited indicates too many requests for a token
	RateLimited ErrorCode = "RATE_LIMITED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// CallTool suggests calling another MCP tool
	CallTool FixActionType = "call-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Tool        string        `json:"tool,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// KaizenError represents an error with code, message, and suggestions
type KaizenError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewKaizenError creates a new KaizenError. When fixes is nil the
// registered fixes for the code are attached.
func NewKaizenError(code ErrorCode, message string, cause error, fixes []FixAction) *KaizenError {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &KaizenError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Error implements the error interface
func (e *KaizenError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *KaizenError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *KaizenError) WithDetails(details interface{}) *KaizenError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ScopeNotFound: {
		{
			Type:        RunCommand,
			Command:     "kaizen namespace list --scopes",
			Safe:        true,
			Description: "List existing namespaces and scopes",
		},
		{
			Type:        CallTool,
			Tool:        "get_namespaces",
			Safe:        true,
			Description: "List existing namespaces and scopes",
		},
	},
	NamespaceNotFound: {
		{
			Type:        RunCommand,
			Command:     "kaizen namespace list",
			Safe:        true,
			Description: "List existing namespaces",
		},
	},
	InvalidTaskSizeFilter: {
		{
			Type:        RunCommand,
			Command:     "kaizen resolve --task-size M ...",
			Safe:        true,
			Description: "Use one of XS, S, M, L, XL or omit the filter",
		},
	},
	CycleRejected: {
		{
			Type:        RunCommand,
			Command:     "kaizen chain <parent>",
			Safe:        true,
			Description: "Inspect the parent's inheritance chain before linking",
		},
	},
	RateLimited: {
		{
			Type:        RunCommand,
			Command:     "sleep 2",
			Safe:        true,
			Description: "Retry after brief delay",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

// CodeOf returns the code of the first KaizenError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ke *KaizenError
	if stderrors.As(err, &ke) {
		return ke.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var ke *KaizenError
	return stderrors.As(err, &ke) && ke.Code == code
}

// NewScopeNotFoundError reports a missing scope id.
func NewScopeNotFoundError(scopeID string) *KaizenError {
	return NewKaizenError(ScopeNotFound, fmt.Sprintf("scope %q not found", scopeID), nil, nil).
		WithDetails(map[string]string{"scope": scopeID})
}

// NewNamespaceNotFoundError reports a missing namespace.
func NewNamespaceNotFoundError(name string) *KaizenError {
	return NewKaizenError(NamespaceNotFound, fmt.Sprintf("namespace %q not found", name), nil, nil).
		WithDetails(map[string]string{"namespace": name})
}

// NewEntryNotFoundError reports a missing knowledge entry.
func NewEntryNotFoundError(id string) *KaizenError {
	return NewKaizenError(EntryNotFound, fmt.Sprintf("knowledge entry %q not found", id), nil, nil).
		WithDetails(map[string]string{"entry": id})
}

// NewConflictNotFoundError reports a missing conflict record.
func NewConflictNotFoundError(id string) *KaizenError {
	return NewKaizenError(ConflictNotFound, fmt.Sprintf("conflict record %q not found", id), nil, nil)
}

// NewInvalidTaskSizeError reports a task size outside the ordinal set.
func NewInvalidTaskSizeError(value string) *KaizenError {
	return NewKaizenError(InvalidTaskSizeFilter,
		fmt.Sprintf("invalid task size %q: expected one of XS, S, M, L, XL", value), nil, nil)
}

// NewCycleRejectedError reports a parent edge that would close a cycle.
func NewCycleRejectedError(child, parent string) *KaizenError {
	return NewKaizenError(CycleRejected,
		fmt.Sprintf("making %q a parent of %q would create a cycle", parent, child), nil, nil).
		WithDetails(map[string]string{"scope": child, "parent": parent})
}

// NewConflictRecordInvalidError reports a malformed conflict record.
func NewConflictRecordInvalidError(reason string) *KaizenError {
	return NewKaizenError(ConflictRecordInvalid, reason, nil, nil)
}

// NewAlreadyExistsError reports a name collision.
func NewAlreadyExistsError(kind, id string) *KaizenError {
	return NewKaizenError(AlreadyExists, fmt.Sprintf("%s %q already exists", kind, id), nil, nil)
}

// NewScopeInUseError reports a scope that still has children.
func NewScopeInUseError(scopeID string, children []string) *KaizenError {
	return NewKaizenError(ScopeInUse,
		fmt.Sprintf("scope %q is still a parent of %d scope(s)", scopeID, len(children)), nil, nil).
		WithDetails(map[string]interface{}{"scope": scopeID, "children": children})
}

// NewProtectedResourceError reports an attempt to change a built-in resource.
func NewProtectedResourceError(kind, id, action string) *KaizenError {
	return NewKaizenError(ProtectedResource, fmt.Sprintf("cannot %s %s %q", action, kind, id), nil, nil)
}

// NewInvalidParameterError reports a malformed parameter.
func NewInvalidParameterError(param, detail string) *KaizenError {
	return NewKaizenError(InvalidParameter, fmt.Sprintf("invalid parameter %q: %s", param, detail), nil, nil).
		WithDetails(map[string]string{"parameter": param})
}

// NewSecretDetectedError reports a credential found in a knowledge field.
func NewSecretDetectedError(field, rule string) *KaizenError {
	return NewKaizenError(SecretDetected,
		fmt.Sprintf("%s contains what looks like a secret (%s)", field, rule), nil, nil)
}

// NewGraphInconsistentError reports a stored graph that violates its invariants.
func NewGraphInconsistentError(message string) *KaizenError {
	return NewKaizenError(GraphInconsistent, message, nil, nil)
}

// NewOperationError wraps an unexpected failure of an operation.
func NewOperationError(op string, err error) *KaizenError {
	return NewKaizenError(InternalError, op+" failed", err, nil)
}
