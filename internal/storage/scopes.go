package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
)

// ScopeRepository provides CRUD operations for scopes and their parent edges
type ScopeRepository struct {
	db *DB
}

// NewScopeRepository creates a new scope repository
func NewScopeRepository(db *DB) *ScopeRepository {
	return &ScopeRepository{db: db}
}

// listScopes returns the scopes of a namespace (all namespaces when ns is
// empty) with their parents, ordered by id.
func listScopes(ctx context.Context, q querier, ns string) ([]*knowledge.Scope, error) {
	query := scopeColumns
	var args []interface{}
	if ns != "" {
		query += " WHERE n.name = ?"
		args = append(args, ns)
	}
	query += " ORDER BY n.name, s.name"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	var found []*scopeRow
	for rows.Next() {
		r, err := scanScope(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found = append(found, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]*knowledge.Scope, 0, len(found))
	for _, r := range found {
		if r.Parents, err = loadParents(ctx, q, r.pk); err != nil {
			return nil, err
		}
		out = append(out, r.Scope)
	}
	return out, nil
}

// Create inserts a scope. The tier defaults to PROJECT and the namespace's
// default scope is always among the parents of non-GENERAL scopes.
func (r *ScopeRepository) Create(ctx context.Context, in *knowledge.ScopeInput) (*knowledge.Scope, error) {
	if err := knowledge.Validate(in); err != nil {
		return nil, err
	}
	ns, name, err := knowledge.SplitScopeID(in.ID)
	if err != nil {
		return nil, err
	}
	tier := knowledge.TierProject
	if in.Tier != "" {
		if tier, err = knowledge.ParseTier(in.Tier); err != nil {
			return nil, err
		}
	}

	var parents []string
	if tier == knowledge.TierGeneral {
		if len(in.Parents) > 0 {
			return nil, errors.NewInvalidParameterError("parents", "GENERAL scopes cannot have parents")
		}
	} else {
		parents = uniqueSorted(append(append([]string{}, in.Parents...), knowledge.DefaultScopeID(ns)))
	}

	err = r.db.mutate(ctx, "scope.create", func(tx *sql.Tx) error {
		nsPK, err := namespacePK(ctx, tx, ns)
		if err != nil {
			return err
		}
		if nsPK == 0 {
			return errors.NewNamespaceNotFoundError(ns)
		}
		existing, err := loadScope(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.NewAlreadyExistsError("scope", in.ID)
		}

		candidate := &knowledge.Scope{ID: in.ID, Namespace: ns, Name: name, Tier: tier}
		if err := knowledge.CheckParents(ctx, &txView{q: tx}, candidate, parents); err != nil {
			return err
		}

		now := formatTime(time.Now())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO scopes (namespace_id, name, tier, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, nsPK, name, tier.String(), in.Description, now, now)
		if err != nil {
			return fmt.Errorf("failed to create scope: %w", err)
		}
		pk, err := res.LastInsertId()
		if err != nil {
			return err
		}
		return insertParents(ctx, tx, pk, parents)
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Scope created", "scope", in.ID, "tier", tier.String(), "parents", parents)
	return r.Get(ctx, in.ID)
}

// Get returns a scope with its parents.
func (r *ScopeRepository) Get(ctx context.Context, id string) (*knowledge.Scope, error) {
	row, err := loadScope(ctx, r.db.conn, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.NewScopeNotFoundError(id)
	}
	return row.Scope, nil
}

// List returns the scopes of a namespace, or of every namespace when ns is
// empty.
func (r *ScopeRepository) List(ctx context.Context, ns string) ([]*knowledge.Scope, error) {
	if ns != "" {
		pk, err := namespacePK(ctx, r.db.conn, ns)
		if err != nil {
			return nil, err
		}
		if pk == 0 {
			return nil, errors.NewNamespaceNotFoundError(ns)
		}
	}
	return listScopes(ctx, r.db.conn, ns)
}

// Update changes a scope. Parent changes are re-validated for acyclicity
// inside the same write transaction.
func (r *ScopeRepository) Update(ctx context.Context, in *knowledge.ScopeUpdate) (*knowledge.Scope, error) {
	if err := knowledge.Validate(in); err != nil {
		return nil, err
	}
	if in.ID == knowledge.GlobalScopeID {
		return nil, errors.NewProtectedResourceError("scope", in.ID, "update")
	}

	resultID := in.ID
	err := r.db.mutate(ctx, "scope.update", func(tx *sql.Tx) error {
		existing, err := loadScope(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.NewScopeNotFoundError(in.ID)
		}

		now := formatTime(time.Now())
		if in.NewName != nil && *in.NewName != existing.Name {
			if existing.IsDefault() {
				return errors.NewProtectedResourceError("scope", in.ID, "rename")
			}
			newID := knowledge.ScopeID(existing.Namespace, *in.NewName)
			taken, err := loadScope(ctx, tx, newID)
			if err != nil {
				return err
			}
			if taken != nil {
				return errors.NewAlreadyExistsError("scope", newID)
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE scopes SET name = ?, updated_at = ? WHERE id = ?", *in.NewName, now, existing.pk); err != nil {
				return fmt.Errorf("failed to rename scope: %w", err)
			}
			resultID = newID
		}

		if in.Description != nil {
			if _, err := tx.ExecContext(ctx,
				"UPDATE scopes SET description = ?, updated_at = ? WHERE id = ?", *in.Description, now, existing.pk); err != nil {
				return fmt.Errorf("failed to update scope: %w", err)
			}
		}

		tier := existing.Tier
		if in.Tier != nil {
			if tier, err = knowledge.ParseTier(*in.Tier); err != nil {
				return err
			}
		}

		parentsChanged := in.Parents != nil || len(in.AddParents) > 0 || len(in.RemoveParents) > 0
		parents := existing.Parents
		if parentsChanged {
			parents = nextParents(existing.Parents, in)
		}
		if tier == knowledge.TierGeneral && len(parents) > 0 {
			return errors.NewInvalidParameterError("parents", "GENERAL scopes cannot have parents")
		}
		if tier != knowledge.TierGeneral && len(parents) == 0 {
			return errors.NewInvalidParameterError("parents", "non-GENERAL scopes need at least one parent")
		}

		if in.Tier != nil && tier != existing.Tier {
			if _, err := tx.ExecContext(ctx,
				"UPDATE scopes SET tier = ?, updated_at = ? WHERE id = ?", tier.String(), now, existing.pk); err != nil {
				return fmt.Errorf("failed to update tier: %w", err)
			}
		}

		if !parentsChanged {
			return nil
		}
		// Edges are read back under current names, so check against the
		// post-rename id.
		candidate := &knowledge.Scope{ID: resultID, Namespace: existing.Namespace, Tier: tier}
		if err := knowledge.CheckParents(ctx, &txView{q: tx}, candidate, parents); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM scope_parents WHERE child_id = ?", existing.pk); err != nil {
			return fmt.Errorf("failed to clear parents: %w", err)
		}
		if err := insertParents(ctx, tx, existing.pk, parents); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE scopes SET updated_at = ? WHERE id = ?", now, existing.pk)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Scope updated", "scope", in.ID, "id", resultID)
	return r.Get(ctx, resultID)
}

// nextParents applies a replacement set and then additions and removals.
func nextParents(current []string, in *knowledge.ScopeUpdate) []string {
	base := current
	if in.Parents != nil {
		base = *in.Parents
	}
	set := append(append([]string{}, base...), in.AddParents...)
	remove := make(map[string]bool, len(in.RemoveParents))
	for _, id := range in.RemoveParents {
		remove[id] = true
	}
	out := set[:0]
	for _, id := range set {
		if !remove[id] {
			out = append(out, id)
		}
	}
	return uniqueSorted(out)
}

// Delete removes a scope, its entries and the conflict records that
// reference them. It returns the number of deleted entries.
func (r *ScopeRepository) Delete(ctx context.Context, id string) (int, error) {
	var deleted int
	err := r.db.mutate(ctx, "scope.delete", func(tx *sql.Tx) error {
		existing, err := loadScope(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.NewScopeNotFoundError(id)
		}
		if existing.IsDefault() {
			return errors.NewProtectedResourceError("scope", id, "delete")
		}

		children, err := childrenOf(ctx, tx, "sp.parent_id = ?", existing.pk)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return errors.NewScopeInUseError(id, children)
		}

		if deleted, err = removeEntries(ctx, tx, "scope_id = ?", existing.pk); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM scopes WHERE id = ?", existing.pk); err != nil {
			return fmt.Errorf("failed to delete scope: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.db.logger.Info("Scope deleted", "scope", id, "entries", deleted)
	return deleted, nil
}
