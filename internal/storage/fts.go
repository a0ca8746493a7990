package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FTS column weights for bm25(knowledge_fts, context, content).
// Context is weighted above content.
const (
	ftsContextWeight = 10.0
	ftsContentWeight = 4.0
)

var knowledgeFTSTriggers = []string{
	`CREATE TRIGGER IF NOT EXISTS knowledge_fts_ai AFTER INSERT ON knowledge BEGIN
		INSERT INTO knowledge_fts(rowid, context, content)
		VALUES (new.rowid, new.context, new.content);
	END`,

	`CREATE TRIGGER IF NOT EXISTS knowledge_fts_au AFTER UPDATE OF context, content ON knowledge BEGIN
		INSERT INTO knowledge_fts(knowledge_fts, rowid, context, content)
		VALUES ('delete', old.rowid, old.context, old.content);
		INSERT INTO knowledge_fts(rowid, context, content)
		VALUES (new.rowid, new.context, new.content);
	END`,

	`CREATE TRIGGER IF NOT EXISTS knowledge_fts_ad AFTER DELETE ON knowledge BEGIN
		INSERT INTO knowledge_fts(knowledge_fts, rowid, context, content)
		VALUES ('delete', old.rowid, old.context, old.content);
	END`,
}

// createKnowledgeFTS creates the external-content FTS5 table over knowledge
// and the triggers that keep it in sync.
func createKnowledgeFTS(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_fts USING fts5(
			context,
			content,
			content='knowledge',
			content_rowid='rowid'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create knowledge_fts table: %w", err)
	}

	for _, trigger := range knowledgeFTSTriggers {
		if _, err := tx.Exec(trigger); err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}
	return nil
}

// FTSManager runs maintenance on the knowledge full-text index
type FTSManager struct {
	db *sql.DB
}

// NewFTSManager creates a new FTS manager
func NewFTSManager(db *DB) *FTSManager {
	return &FTSManager{db: db.conn}
}

// Rebuild forces a complete rebuild of the FTS index
func (m *FTSManager) Rebuild(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, "INSERT INTO knowledge_fts(knowledge_fts) VALUES('rebuild')")
	return err
}

// Optimize merges the FTS index b-trees
func (m *FTSManager) Optimize(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, "INSERT INTO knowledge_fts(knowledge_fts) VALUES('optimize')")
	return err
}

// IntegrityCheck verifies the FTS index against the knowledge table
func (m *FTSManager) IntegrityCheck(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, "INSERT INTO knowledge_fts(knowledge_fts, rank) VALUES('integrity-check', 1)")
	return err
}

// FTSStats summarizes the index
type FTSStats struct {
	IndexedEntries     int   `json:"indexedEntries"`
	EstimatedSizeBytes int64 `json:"estimatedSizeBytes"`
}

// GetStats returns FTS index statistics
func (m *FTSManager) GetStats(ctx context.Context) (*FTSStats, error) {
	stats := &FTSStats{}
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge").Scan(&stats.IndexedEntries); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := m.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := m.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.EstimatedSizeBytes = pageCount * pageSize
		}
	}
	return stats, nil
}

// buildMatchQuery ORs the quoted terms into an FTS5 MATCH expression
func buildMatchQuery(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+escapeFTS5Query(t)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// escapeFTS5Query escapes double quotes inside an FTS5 string
func escapeFTS5Query(query string) string {
	return strings.ReplaceAll(query, `"`, `""`)
}
