package auth

import (
	"context"
	"log/slog"
	"time"

	"kaizen/internal/errors"
)

// ManagerConfig configures the auth manager
type ManagerConfig struct {
	// RequireAuth demands a write token on mutating requests. Reads are
	// always open.
	RequireAuth  bool
	RateLimiting RateLimitConfig
}

// DefaultManagerConfig returns the server defaults
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		RequireAuth:  false,
		RateLimiting: DefaultRateLimitConfig(),
	}
}

// Manager authenticates bearer tokens and manages API keys
type Manager struct {
	config      ManagerConfig
	store       *KeyStore
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewManager creates a new auth manager. store may be nil, in which case
// only anonymous access is possible.
func NewManager(config ManagerConfig, store *KeyStore, logger *slog.Logger) *Manager {
	m := &Manager{
		config:      config,
		store:       store,
		rateLimiter: NewRateLimiter(config.RateLimiting, logger),
		logger:      logger,
	}
	logger.Debug("Auth manager initialized",
		"require_auth", config.RequireAuth,
		"rate_limiting", config.RateLimiting.Enabled,
	)
	return m
}

// RequireAuth reports whether mutating requests need a token
func (m *Manager) RequireAuth() bool {
	return m.config.RequireAuth
}

// Authenticate checks token against the required permission. A missing
// token is accepted for reads, and for writes when auth is not required. A
// presented token is always verified.
func (m *Manager) Authenticate(ctx context.Context, token string, required Permission) *AuthResult {
	if token == "" {
		if required == PermRead || (!m.config.RequireAuth && required == PermWrite) {
			return &AuthResult{Authenticated: true, Permissions: []Permission{required}}
		}
		return denied(errors.Unauthorized, "Authorization header required")
	}

	key := m.findKey(ctx, token)
	if key == nil {
		m.audit(AuditEventAuthFailed, "", "", "reason", "invalid_token")
		return denied(errors.Unauthorized, "Invalid API key")
	}
	if key.IsRevoked() {
		m.audit(AuditEventAuthFailed, key.ID, key.Name, "reason", "revoked")
		return denied(errors.Unauthorized, "API key has been revoked")
	}
	if !key.Has(required) {
		return denied(errors.Forbidden, "API key lacks the "+string(required)+" permission")
	}

	if allowed, retryAfter := m.rateLimiter.Allow(key.ID, key.RateLimit); !allowed {
		m.audit(AuditEventRateLimited, key.ID, key.Name)
		res := denied(errors.RateLimited, "Rate limit exceeded")
		res.RetryAfter = retryAfter
		return res
	}

	if err := m.store.UpdateLastUsed(ctx, key.ID, time.Now()); err != nil {
		m.logger.Warn("Failed to update last used", "key_id", key.ID, "error", err.Error())
	}

	return &AuthResult{
		Authenticated: true,
		KeyID:         key.ID,
		KeyName:       key.Name,
		Permissions:   key.Permissions,
	}
}

// AllowAnonymous rate-limits a request that carried no token, keyed by
// client address.
func (m *Manager) AllowAnonymous(client string) (bool, int) {
	return m.rateLimiter.Allow("anon:"+client, nil)
}

func (m *Manager) findKey(ctx context.Context, token string) *APIKey {
	if m.store == nil || !IsValidTokenFormat(token) {
		return nil
	}
	keys, err := m.store.GetByTokenPrefix(ctx, ExtractTokenPrefix(token))
	if err != nil {
		m.logger.Error("Failed to lookup key by prefix", "error", err.Error())
		return nil
	}
	for _, key := range keys {
		if VerifyToken(token, key.TokenHash) {
			return key
		}
	}
	return nil
}

// CreateKey generates a new API key. The raw token is returned once and
// never stored.
func (m *Manager) CreateKey(ctx context.Context, opts CreateKeyOptions) (*APIKey, string, error) {
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}
	if m.store == nil {
		return nil, "", ErrStoreNotInitialized
	}

	rawToken, prefix, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	hash, err := HashToken(rawToken)
	if err != nil {
		return nil, "", err
	}

	key := &APIKey{
		ID:          GenerateKeyID(),
		Name:        opts.Name,
		TokenHash:   hash,
		TokenPrefix: prefix,
		Permissions: opts.Permissions,
		RateLimit:   opts.RateLimit,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := m.store.Save(ctx, key); err != nil {
		return nil, "", err
	}

	m.audit(AuditEventKeyCreated, key.ID, key.Name)
	key.TokenHash = ""
	return key, rawToken, nil
}

// RevokeKey revokes an API key
func (m *Manager) RevokeKey(ctx context.Context, id string) error {
	if m.store == nil {
		return ErrStoreNotInitialized
	}
	if err := m.store.Revoke(ctx, id, time.Now()); err != nil {
		return err
	}
	m.rateLimiter.Reset(id)
	m.audit(AuditEventKeyRevoked, id, "")
	return nil
}

// RotateKey issues a new token for an existing key, invalidating the old one
func (m *Manager) RotateKey(ctx context.Context, id string) (*APIKey, string, error) {
	if m.store == nil {
		return nil, "", ErrStoreNotInitialized
	}
	key, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if key.IsRevoked() {
		return nil, "", ErrKeyRevoked
	}

	rawToken, prefix, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	hash, err := HashToken(rawToken)
	if err != nil {
		return nil, "", err
	}
	if err := m.store.UpdateToken(ctx, id, hash, prefix); err != nil {
		return nil, "", err
	}
	m.rateLimiter.Reset(id)
	m.audit(AuditEventKeyRotated, key.ID, key.Name)

	key.TokenHash = ""
	key.TokenPrefix = prefix
	return key, rawToken, nil
}

// ListKeys returns API keys with hashes redacted
func (m *Manager) ListKeys(ctx context.Context, includeRevoked bool) ([]*APIKey, error) {
	if m.store == nil {
		return nil, nil
	}
	keys, err := m.store.List(ctx, includeRevoked)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		k.TokenHash = ""
	}
	return keys, nil
}

// StartBackgroundTasks starts background maintenance tasks
func (m *Manager) StartBackgroundTasks(ctx context.Context) {
	m.rateLimiter.StartCleanup(ctx)
}

// Stats returns manager statistics
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"requireAuth": m.config.RequireAuth,
		"rateLimiter": m.rateLimiter.Stats(),
	}
}

func (m *Manager) audit(event, keyID, keyName string, attrs ...any) {
	args := append([]any{"event", event, "key_id", keyID, "key_name", keyName}, attrs...)
	m.logger.Info("Auth audit", args...)
}
