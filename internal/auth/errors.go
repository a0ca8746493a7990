package auth

import "errors"

var (
	ErrNameRequired        = errors.New("name is required")
	ErrPermissionsRequired = errors.New("at least one permission is required")
	ErrInvalidPermission   = errors.New("invalid permission")
	ErrInvalidRateLimit    = errors.New("rate limit must be positive")

	ErrKeyNotFound = errors.New("API key not found")
	ErrKeyRevoked  = errors.New("API key has been revoked")

	ErrStoreNotInitialized = errors.New("key store not initialized")
)
