package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
)

// NamespaceDeletion reports what a namespace deletion removed.
type NamespaceDeletion struct {
	Namespace      string `json:"namespace"`
	DeletedScopes  int    `json:"deletedScopes"`
	DeletedEntries int    `json:"deletedEntries"`
}

// NamespaceRepository provides CRUD operations for namespaces
type NamespaceRepository struct {
	db *DB
}

// NewNamespaceRepository creates a new namespace repository
func NewNamespaceRepository(db *DB) *NamespaceRepository {
	return &NamespaceRepository{db: db}
}

// Create inserts a namespace together with its default PRODUCT scope, which
// inherits from global:default.
func (r *NamespaceRepository) Create(ctx context.Context, in *knowledge.NamespaceInput) (*knowledge.Namespace, error) {
	if err := knowledge.Validate(in); err != nil {
		return nil, err
	}

	err := r.db.mutate(ctx, "namespace.create", func(tx *sql.Tx) error {
		existing, err := namespacePK(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if existing != 0 {
			return errors.NewAlreadyExistsError("namespace", in.Name)
		}

		now := formatTime(time.Now())
		res, err := tx.ExecContext(ctx,
			"INSERT INTO namespaces (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
			in.Name, in.Description, now, now)
		if err != nil {
			return fmt.Errorf("failed to create namespace: %w", err)
		}
		nsPK, err := res.LastInsertId()
		if err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO scopes (namespace_id, name, tier, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, nsPK, knowledge.DefaultScopeName, knowledge.TierProduct.String(),
			fmt.Sprintf("Default scope of %s", in.Name), now, now)
		if err != nil {
			return fmt.Errorf("failed to create default scope: %w", err)
		}
		scopePK, err := res.LastInsertId()
		if err != nil {
			return err
		}
		return insertParents(ctx, tx, scopePK, []string{knowledge.GlobalScopeID})
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Namespace created", "namespace", in.Name)
	return r.Get(ctx, in.Name, true)
}

// Get returns one namespace, optionally with its scopes.
func (r *NamespaceRepository) Get(ctx context.Context, name string, withScopes bool) (*knowledge.Namespace, error) {
	list, err := r.list(ctx, r.db.conn, "WHERE name = ?", []interface{}{name}, withScopes)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.NewNamespaceNotFoundError(name)
	}
	return list[0], nil
}

// List returns all namespaces ordered by name.
func (r *NamespaceRepository) List(ctx context.Context, withScopes bool) ([]*knowledge.Namespace, error) {
	return r.list(ctx, r.db.conn, "", nil, withScopes)
}

func (r *NamespaceRepository) list(ctx context.Context, q querier, where string, args []interface{}, withScopes bool) ([]*knowledge.Namespace, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name, description, created_at, updated_at FROM namespaces "+where+" ORDER BY name", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	var out []*knowledge.Namespace
	for rows.Next() {
		var (
			ns               knowledge.Namespace
			created, updated string
		)
		if err := rows.Scan(&ns.Name, &ns.Description, &created, &updated); err != nil {
			rows.Close()
			return nil, err
		}
		ns.CreatedAt = parseTime(created)
		ns.UpdatedAt = parseTime(updated)
		out = append(out, &ns)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if withScopes {
		for _, ns := range out {
			if ns.Scopes, err = listScopes(ctx, q, ns.Name); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Update renames a namespace or changes its description. The global
// namespace cannot be changed.
func (r *NamespaceRepository) Update(ctx context.Context, in *knowledge.NamespaceUpdate) (*knowledge.Namespace, error) {
	if err := knowledge.Validate(in); err != nil {
		return nil, err
	}
	if in.Name == knowledge.GlobalNamespace {
		return nil, errors.NewProtectedResourceError("namespace", in.Name, "update")
	}

	name := in.Name
	err := r.db.mutate(ctx, "namespace.update", func(tx *sql.Tx) error {
		pk, err := namespacePK(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if pk == 0 {
			return errors.NewNamespaceNotFoundError(in.Name)
		}

		now := formatTime(time.Now())
		if in.NewName != nil && *in.NewName != in.Name {
			taken, err := namespacePK(ctx, tx, *in.NewName)
			if err != nil {
				return err
			}
			if taken != 0 {
				return errors.NewAlreadyExistsError("namespace", *in.NewName)
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE namespaces SET name = ?, updated_at = ? WHERE id = ?", *in.NewName, now, pk); err != nil {
				return fmt.Errorf("failed to rename namespace: %w", err)
			}
			name = *in.NewName
		}
		if in.Description != nil {
			if _, err := tx.ExecContext(ctx,
				"UPDATE namespaces SET description = ?, updated_at = ? WHERE id = ?", *in.Description, now, pk); err != nil {
				return fmt.Errorf("failed to update namespace: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Namespace updated", "namespace", in.Name, "name", name)
	return r.Get(ctx, name, true)
}

// Delete removes a namespace with its scopes, entries and conflict records.
// It fails while scopes of other namespaces inherit from it.
func (r *NamespaceRepository) Delete(ctx context.Context, name string) (*NamespaceDeletion, error) {
	if name == knowledge.GlobalNamespace {
		return nil, errors.NewProtectedResourceError("namespace", name, "delete")
	}

	result := &NamespaceDeletion{Namespace: name}
	err := r.db.mutate(ctx, "namespace.delete", func(tx *sql.Tx) error {
		pk, err := namespacePK(ctx, tx, name)
		if err != nil {
			return err
		}
		if pk == 0 {
			return errors.NewNamespaceNotFoundError(name)
		}

		outside, err := childrenOf(ctx, tx, "p.namespace_id = ? AND c.namespace_id != ?", pk, pk)
		if err != nil {
			return err
		}
		if len(outside) > 0 {
			return errors.NewScopeInUseError(knowledge.DefaultScopeID(name), outside)
		}

		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM scopes WHERE namespace_id = ?", pk).Scan(&result.DeletedScopes); err != nil {
			return err
		}
		if result.DeletedEntries, err = removeEntries(ctx, tx,
			"scope_id IN (SELECT id FROM scopes WHERE namespace_id = ?)", pk); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM namespaces WHERE id = ?", pk); err != nil {
			return fmt.Errorf("failed to delete namespace: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Namespace deleted",
		"namespace", name,
		"scopes", result.DeletedScopes,
		"entries", result.DeletedEntries,
	)
	return result, nil
}
