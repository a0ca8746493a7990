package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// KeyStore persists API keys in the api_keys table. The table is created by
// the storage migrations.
type KeyStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewKeyStore creates a key store over an open database
func NewKeyStore(db *sql.DB, logger *slog.Logger) *KeyStore {
	return &KeyStore{db: db, logger: logger}
}

const keyColumns = "id, name, token_hash, token_prefix, permissions, rate_limit, created_at, last_used_at, revoked_at"

// Save persists a new API key
func (s *KeyStore) Save(ctx context.Context, key *APIKey) error {
	perms, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (`+keyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		key.ID, key.Name, key.TokenHash, key.TokenPrefix, string(perms),
		nullableInt(key.RateLimit), formatTime(key.CreatedAt),
		nullableTime(key.LastUsedAt), nullableTime(key.RevokedAt),
	)
	if err != nil {
		return fmt.Errorf("save key: %w", err)
	}
	return nil
}

// GetByID returns one key, or ErrKeyNotFound
func (s *KeyStore) GetByID(ctx context.Context, id string) (*APIKey, error) {
	keys, err := s.query(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrKeyNotFound
	}
	return keys[0], nil
}

// GetByTokenPrefix returns every key sharing a lookup prefix, revoked ones included
func (s *KeyStore) GetByTokenPrefix(ctx context.Context, prefix string) ([]*APIKey, error) {
	return s.query(ctx, "WHERE token_prefix = ?", prefix)
}

// List returns keys ordered by creation time
func (s *KeyStore) List(ctx context.Context, includeRevoked bool) ([]*APIKey, error) {
	if includeRevoked {
		return s.query(ctx, "")
	}
	return s.query(ctx, "WHERE revoked_at IS NULL")
}

// Revoke marks a key revoked. Revoking twice keeps the first timestamp.
func (s *KeyStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?",
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	return requireRow(res)
}

// UpdateToken replaces a key's hash and prefix
func (s *KeyStore) UpdateToken(ctx context.Context, id, hash, prefix string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET token_hash = ?, token_prefix = ? WHERE id = ?",
		hash, prefix, id)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return requireRow(res)
}

// UpdateLastUsed records the last successful authentication
func (s *KeyStore) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = ? WHERE id = ?", formatTime(at), id)
	return err
}

// Delete removes a key entirely
func (s *KeyStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return requireRow(res)
}

func (s *KeyStore) query(ctx context.Context, where string, args ...interface{}) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+keyColumns+" FROM api_keys "+where+" ORDER BY created_at, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		var (
			key                   APIKey
			perms, created        string
			rateLimit             sql.NullInt64
			lastUsed, revokedTime sql.NullString
		)
		if err := rows.Scan(&key.ID, &key.Name, &key.TokenHash, &key.TokenPrefix,
			&perms, &rateLimit, &created, &lastUsed, &revokedTime); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if err := json.Unmarshal([]byte(perms), &key.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
		if rateLimit.Valid {
			rl := int(rateLimit.Int64)
			key.RateLimit = &rl
		}
		key.CreatedAt, _ = time.Parse(time.RFC3339, created)
		key.LastUsedAt = parseNullTime(lastUsed)
		key.RevokedAt = parseNullTime(revokedTime)
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableInt(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
