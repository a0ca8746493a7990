package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"kaizen/internal/knowledge"
)

// Repositories bundles the per-table repositories over one database.
type Repositories struct {
	Namespaces *NamespaceRepository
	Scopes     *ScopeRepository
	Entries    *EntryRepository
	Conflicts  *ConflictRepository
}

// NewRepositories creates every repository for db.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Namespaces: NewNamespaceRepository(db),
		Scopes:     NewScopeRepository(db),
		Entries:    NewEntryRepository(db),
		Conflicts:  NewConflictRepository(db),
	}
}

// namespacePK returns the surrogate key of a namespace, or 0 when missing.
func namespacePK(ctx context.Context, q querier, name string) (int64, error) {
	var pk int64
	err := q.QueryRowContext(ctx, "SELECT id FROM namespaces WHERE name = ?", name).Scan(&pk)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up namespace %s: %w", name, err)
	}
	return pk, nil
}

// insertParents links childPK to every parent scope id.
func insertParents(ctx context.Context, q querier, childPK int64, parents []string) error {
	for _, pid := range parents {
		parent, err := loadScope(ctx, q, pid)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("parent scope %s vanished", pid)
		}
		if _, err := q.ExecContext(ctx,
			"INSERT INTO scope_parents (child_id, parent_id) VALUES (?, ?)", childPK, parent.pk); err != nil {
			return fmt.Errorf("failed to link %s: %w", pid, err)
		}
	}
	return nil
}

// childrenOf lists child scope ids of the parent edges matching where.
// The aliases p (parent scope) and c (child scope) are in scope.
func childrenOf(ctx context.Context, q querier, where string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT cn.name || ':' || c.name
		FROM scope_parents sp
		JOIN scopes p ON p.id = sp.parent_id
		JOIN scopes c ON c.id = sp.child_id
		JOIN namespaces cn ON cn.id = c.namespace_id
		WHERE `+where+`
		ORDER BY 1
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list child scopes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// removeEntries deletes knowledge rows through explicit DELETEs so the FTS
// triggers fire, then drops conflict records left without suppressed ids.
func removeEntries(ctx context.Context, q querier, where string, args ...interface{}) (int, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM knowledge WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := pruneConflicts(ctx, q); err != nil {
		return 0, err
	}
	return int(n), nil
}

func pruneConflicts(ctx context.Context, q querier) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM conflicts WHERE id NOT IN (SELECT conflict_id FROM conflict_suppressed)")
	if err != nil {
		return fmt.Errorf("failed to prune conflicts: %w", err)
	}
	return nil
}

func encodeMeta(m knowledge.Metaknowledge) (string, error) {
	if m == nil {
		m = knowledge.Metaknowledge{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metaknowledge: %w", err)
	}
	return string(b), nil
}

func nullableSize(s knowledge.TaskSize) interface{} {
	if s.IsNone() {
		return nil
	}
	return s.String()
}

// uniqueSorted returns ids without duplicates, sorted.
func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
