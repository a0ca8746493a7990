package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kaizen/internal/knowledge"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// View runs fn against a read transaction so that every read inside it
// observes the same committed state. It implements knowledge.Store.
func (db *DB) View(ctx context.Context, fn func(knowledge.View) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(&txView{q: tx})
}

// txView reads scopes, entries and suppressions through one querier.
type txView struct {
	q querier
}

var _ knowledge.View = (*txView)(nil)

// scopeRow is a scope with its surrogate keys.
type scopeRow struct {
	pk   int64
	nsPK int64
	*knowledge.Scope
}

const scopeColumns = `
	SELECT s.id, s.namespace_id, n.name, s.name, s.tier, s.description, s.created_at, s.updated_at
	FROM scopes s
	JOIN namespaces n ON n.id = s.namespace_id`

func scanScope(row interface{ Scan(...interface{}) error }) (*scopeRow, error) {
	var (
		r                      scopeRow
		tier, created, updated string
	)
	r.Scope = &knowledge.Scope{}
	if err := row.Scan(&r.pk, &r.nsPK, &r.Namespace, &r.Name, &tier, &r.Description, &created, &updated); err != nil {
		return nil, err
	}
	t, err := knowledge.ParseTier(tier)
	if err != nil {
		return nil, err
	}
	r.Tier = t
	r.ID = knowledge.ScopeID(r.Namespace, r.Name)
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

// loadScope returns the scope row for id, or nil when it does not exist.
func loadScope(ctx context.Context, q querier, id string) (*scopeRow, error) {
	ns, name, ok := strings.Cut(id, ":")
	if !ok {
		return nil, nil
	}
	row := q.QueryRowContext(ctx, scopeColumns+" WHERE n.name = ? AND s.name = ?", ns, name)
	r, err := scanScope(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scope %s: %w", id, err)
	}
	if r.Parents, err = loadParents(ctx, q, r.pk); err != nil {
		return nil, err
	}
	return r, nil
}

func loadParents(ctx context.Context, q querier, pk int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pn.name || ':' || ps.name
		FROM scope_parents sp
		JOIN scopes ps ON ps.id = sp.parent_id
		JOIN namespaces pn ON pn.id = ps.namespace_id
		WHERE sp.child_id = ?
		ORDER BY 1
	`, pk)
	if err != nil {
		return nil, fmt.Errorf("failed to load parents: %w", err)
	}
	defer rows.Close()

	parents := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		parents = append(parents, id)
	}
	return parents, rows.Err()
}

// GetScope implements knowledge.ScopeReader.
func (v *txView) GetScope(ctx context.Context, id string) (*knowledge.Scope, error) {
	r, err := loadScope(ctx, v.q, id)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Scope, nil
}

const entryColumns = `
	SELECT k.id, n.name || ':' || s.name, k.content, k.context, k.task_size, k.metaknowledge, k.created_at, k.updated_at
	FROM knowledge k
	JOIN scopes s ON s.id = k.scope_id
	JOIN namespaces n ON n.id = s.namespace_id`

func scanEntry(row interface{ Scan(...interface{}) error }) (*knowledge.Entry, error) {
	var (
		e                      knowledge.Entry
		size                   sql.NullString
		meta, created, updated string
	)
	if err := row.Scan(&e.ID, &e.ScopeID, &e.Content, &e.Context, &size, &meta, &created, &updated); err != nil {
		return nil, err
	}
	if size.Valid {
		ts, err := knowledge.ParseTaskSize(size.String)
		if err != nil {
			return nil, err
		}
		e.TaskSize = ts
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &e.Metaknowledge); err != nil {
			return nil, fmt.Errorf("failed to decode metaknowledge of %s: %w", e.ID, err)
		}
	}
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*knowledge.Entry, error) {
	defer rows.Close()
	var out []*knowledge.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SearchEntries implements knowledge.EntrySearcher with an FTS5 match
// restricted to the given scopes. Suppressed entries are left out; every other
// match is returned so the ranker sees the whole candidate set.
func (v *txView) SearchEntries(ctx context.Context, scopeIDs []string, terms []string) ([]*knowledge.Entry, error) {
	match := buildMatchQuery(terms)
	if match == "" || len(scopeIDs) == 0 {
		return nil, nil
	}

	args := make([]interface{}, 0, len(scopeIDs)+1)
	args = append(args, match)
	for _, id := range scopeIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT k.id, n.name || ':' || s.name, k.content, k.context, k.task_size, k.metaknowledge, k.created_at, k.updated_at
		FROM knowledge_fts
		JOIN knowledge k ON k.rowid = knowledge_fts.rowid
		JOIN scopes s ON s.id = k.scope_id
		JOIN namespaces n ON n.id = s.namespace_id
		WHERE knowledge_fts MATCH ?
		  AND n.name || ':' || s.name IN (%s)
		  AND k.id NOT IN (SELECT entry_id FROM conflict_suppressed)
		ORDER BY bm25(knowledge_fts, %g, %g), k.id
	`, placeholders(len(scopeIDs)), ftsContextWeight, ftsContentWeight)

	rows, err := v.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	return scanEntries(rows)
}

// SuppressedAmong implements knowledge.SuppressionReader.
func (v *txView) SuppressedAmong(ctx context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for start := 0; start < len(ids); start += maxBatchParams {
		end := start + maxBatchParams
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		args := make([]interface{}, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		rows, err := v.q.QueryContext(ctx,
			"SELECT DISTINCT entry_id FROM conflict_suppressed WHERE entry_id IN ("+placeholders(len(batch))+")",
			args...)
		if err != nil {
			return nil, fmt.Errorf("failed to read suppressions: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			out[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read suppressions: %w", err)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const maxBatchParams = 500

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
