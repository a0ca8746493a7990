package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewKaizenError(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "kaizen status"}}

	err := NewKaizenError(ScopeNotFound, "scope missing", cause, fixes)

	if err.Code != ScopeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ScopeNotFound)
	}
	if err.Message != "scope missing" {
		t.Errorf("Message = %q, want %q", err.Message, "scope missing")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestNewKaizenError_DefaultFixes(t *testing.T) {
	err := NewKaizenError(ScopeNotFound, "scope missing", nil, nil)
	if len(err.SuggestedFixes) != len(ErrorActions[ScopeNotFound]) {
		t.Errorf("len(SuggestedFixes) = %d, want registered fixes", len(err.SuggestedFixes))
	}

	err = NewKaizenError(InternalError, "boom", nil, nil)
	if err.SuggestedFixes != nil {
		t.Errorf("SuggestedFixes = %v, want nil", err.SuggestedFixes)
	}
}

func TestKaizenError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      InternalError,
			message:   "write failed",
			cause:     errors.New("disk full"),
			wantParts: []string{"INTERNAL_ERROR", "write failed", "disk full"},
		},
		{
			name:      "without cause",
			code:      ScopeNotFound,
			message:   `scope "acme:web" not found`,
			wantParts: []string{"SCOPE_NOT_FOUND", `scope "acme:web" not found`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKaizenError(tt.code, tt.message, tt.cause, nil).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, missing %q", got, part)
				}
			}
			if tt.cause == nil && strings.Contains(got, ": ") {
				t.Errorf("Error() = %q, should not contain a cause separator", got)
			}
		})
	}
}

func TestKaizenError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	err := NewOperationError("resolve", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", NewScopeNotFoundError("a:b"), ScopeNotFound},
		{"wrapped", fmt.Errorf("outer: %w", NewCycleRejectedError("a:b", "a:c")), CycleRejected},
		{"plain", errors.New("plain"), InternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NewInvalidTaskSizeError("XXL"))
	if !Is(err, InvalidTaskSizeFilter) {
		t.Error("Is(InvalidTaskSizeFilter) = false, want true")
	}
	if Is(err, ScopeNotFound) {
		t.Error("Is(ScopeNotFound) = true, want false")
	}
	if Is(nil, ScopeNotFound) {
		t.Error("Is(nil) = true, want false")
	}
}

func TestScopeNotFoundNamesScope(t *testing.T) {
	err := NewScopeNotFoundError("shopcraft:missing")
	if !strings.Contains(err.Error(), "shopcraft:missing") {
		t.Errorf("Error() = %q, want scope id in message", err.Error())
	}
	details, ok := err.Details.(map[string]string)
	if !ok || details["scope"] != "shopcraft:missing" {
		t.Errorf("Details = %v, want scope detail", err.Details)
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(RateLimited); len(fixes) == 0 {
		t.Error("GetSuggestedFixes(RateLimited) returned no fixes")
	}
	if fixes := GetSuggestedFixes(ErrorCode("UNKNOWN")); fixes != nil {
		t.Errorf("GetSuggestedFixes(UNKNOWN) = %v, want nil", fixes)
	}
}
