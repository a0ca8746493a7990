package storage

import (
	"context"
	"fmt"
	"os"
)

// Stats summarizes the store for status and health reporting
type Stats struct {
	Namespaces    int   `json:"namespaces"`
	Scopes        int   `json:"scopes"`
	Entries       int   `json:"entries"`
	Conflicts     int   `json:"conflicts"`
	SchemaVersion int   `json:"schemaVersion"`
	SizeBytes     int64 `json:"sizeBytes"`
	WALSizeBytes  int64 `json:"walSizeBytes"`
}

// Stats counts the rows of every table in one snapshot.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := &Stats{}
	counts := []struct {
		table string
		dst   *int
	}{
		{"namespaces", &s.Namespaces},
		{"scopes", &s.Scopes},
		{"knowledge", &s.Entries},
		{"conflicts", &s.Conflicts},
	}
	for _, c := range counts {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&s.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	if info, err := os.Stat(db.dbPath); err == nil {
		s.SizeBytes = info.Size()
	}
	if info, err := os.Stat(db.dbPath + "-wal"); err == nil {
		s.WALSizeBytes = info.Size()
	}
	return s, nil
}
