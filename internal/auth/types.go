package auth

import (
	"time"

	"kaizen/internal/errors"
)

// Permission is what an API key may do
type Permission string

const (
	// PermRead allows retrieval and listing
	PermRead Permission = "read"
	// PermWrite allows namespace, scope, knowledge and conflict mutations
	PermWrite Permission = "write"
	// PermAdmin allows everything, including token management
	PermAdmin Permission = "admin"
)

// ValidPermissions returns all valid permission values
func ValidPermissions() []Permission {
	return []Permission{PermRead, PermWrite, PermAdmin}
}

// ParsePermission converts a string into a Permission.
func ParsePermission(s string) (Permission, bool) {
	p := Permission(s)
	return p, p.IsValid()
}

// IsValid checks if a permission is known
func (p Permission) IsValid() bool {
	switch p {
	case PermRead, PermWrite, PermAdmin:
		return true
	default:
		return false
	}
}

// Includes reports whether p grants required. admin > write > read.
func (p Permission) Includes(required Permission) bool {
	switch p {
	case PermAdmin:
		return true
	case PermWrite:
		return required == PermWrite || required == PermRead
	case PermRead:
		return required == PermRead
	default:
		return false
	}
}

// APIKey is a stored bearer credential
type APIKey struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	TokenHash   string       `json:"-"`
	TokenPrefix string       `json:"tokenPrefix"`
	Permissions []Permission `json:"permissions"`
	RateLimit   *int         `json:"rateLimit,omitempty"` // requests per second, nil uses the server default
	CreatedAt   time.Time    `json:"createdAt"`
	LastUsedAt  *time.Time   `json:"lastUsedAt,omitempty"`
	RevokedAt   *time.Time   `json:"revokedAt,omitempty"`
}

// IsRevoked reports whether the key has been revoked
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// Has reports whether any of the key's permissions grants required
func (k *APIKey) Has(required Permission) bool {
	for _, p := range k.Permissions {
		if p.Includes(required) {
			return true
		}
	}
	return false
}

// AuthResult is the outcome of one authentication attempt
type AuthResult struct {
	Authenticated bool             `json:"authenticated"`
	KeyID         string           `json:"keyId,omitempty"`
	KeyName       string           `json:"keyName,omitempty"`
	Permissions   []Permission     `json:"permissions,omitempty"`
	RetryAfter    int              `json:"retryAfter,omitempty"` // seconds
	Code          errors.ErrorCode `json:"code,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// Err converts a failed result into a KaizenError. It returns nil on success.
func (r *AuthResult) Err() error {
	if r.Authenticated {
		return nil
	}
	err := errors.NewKaizenError(r.Code, r.Message, nil, nil)
	if r.RetryAfter > 0 {
		err = err.WithDetails(map[string]int{"retryAfterSeconds": r.RetryAfter})
	}
	return err
}

func denied(code errors.ErrorCode, message string) *AuthResult {
	return &AuthResult{Code: code, Message: message}
}

// CreateKeyOptions describes a new API key
type CreateKeyOptions struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	RateLimit   *int         `json:"rateLimit,omitempty"`
}

// Validate checks if the options are valid
func (o *CreateKeyOptions) Validate() error {
	if o.Name == "" {
		return ErrNameRequired
	}
	if len(o.Permissions) == 0 {
		return ErrPermissionsRequired
	}
	for _, p := range o.Permissions {
		if !p.IsValid() {
			return ErrInvalidPermission
		}
	}
	if o.RateLimit != nil && *o.RateLimit <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// Audit event types, written to the log
const (
	AuditEventKeyCreated  = "key_created"
	AuditEventKeyRevoked  = "key_revoked"
	AuditEventKeyRotated  = "key_rotated"
	AuditEventAuthFailed  = "auth_failed"
	AuditEventRateLimited = "rate_limited"
)
