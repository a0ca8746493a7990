package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyIDPrefix is the prefix for API key IDs
	KeyIDPrefix = "kz_key_"

	// TokenPrefix is the prefix for bearer tokens
	TokenPrefix = "kz_sk_" // #nosec G101 //nolint:gosec // Not a credential, just a prefix pattern

	// TokenPrefixLength is the number of secret characters stored for lookup
	TokenPrefixLength = 8

	// tokenBytes is the random part of a token, hex encoded
	tokenBytes = 32

	bcryptCost = 12
)

// GenerateKeyID returns a new key ID of the form kz_key_<32 hex chars>.
func GenerateKeyID() string {
	return KeyIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateToken returns a raw token and its lookup prefix.
func GenerateToken() (string, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	secret := hex.EncodeToString(buf)
	return TokenPrefix + secret, secret[:TokenPrefixLength], nil
}

// HashToken bcrypt-hashes the secret part of a token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secretOf(token)), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken reports whether token matches hash.
func VerifyToken(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secretOf(token))) == nil
}

// ExtractTokenPrefix returns the lookup prefix of a token.
func ExtractTokenPrefix(token string) string {
	secret := secretOf(token)
	if len(secret) < TokenPrefixLength {
		return secret
	}
	return secret[:TokenPrefixLength]
}

// IsValidTokenFormat checks the prefix and the hex secret length.
func IsValidTokenFormat(token string) bool {
	if !strings.HasPrefix(token, TokenPrefix) {
		return false
	}
	secret := secretOf(token)
	if len(secret) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// IsValidKeyIDFormat checks the prefix and the hex id length.
func IsValidKeyIDFormat(keyID string) bool {
	id, ok := strings.CutPrefix(keyID, KeyIDPrefix)
	if !ok || len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is not a bearer credential.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// MaskToken hides everything after the lookup prefix.
// Example: kz_sk_a1b2c3d4****...****
func MaskToken(token string) string {
	if len(token) < len(TokenPrefix)+TokenPrefixLength {
		return "****"
	}
	return token[:len(TokenPrefix)+TokenPrefixLength] + "****...****"
}

func secretOf(token string) string {
	return strings.TrimPrefix(token, TokenPrefix)
}
