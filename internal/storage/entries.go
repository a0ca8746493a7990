package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
)

// EntryRepository provides CRUD operations for knowledge entries
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create writes a new entry and returns it with its generated id.
func (r *EntryRepository) Create(ctx context.Context, in *knowledge.EntryInput) (*knowledge.Entry, error) {
	if err := knowledge.Validate(in); err != nil {
		return nil, err
	}
	size, err := knowledge.ParseTaskSize(in.TaskSize)
	if err != nil {
		return nil, err
	}
	meta, err := encodeMeta(in.Metaknowledge)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	err = r.db.mutate(ctx, "entry.create", func(tx *sql.Tx) error {
		scope, err := loadScope(ctx, tx, in.ScopeID)
		if err != nil {
			return err
		}
		if scope == nil {
			return errors.NewScopeNotFoundError(in.ScopeID)
		}
		now := formatTime(time.Now())
		_, err = tx.ExecContext(ctx, `
			INSERT INTO knowledge (id, scope_id, content, context, task_size, metaknowledge, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, scope.pk, in.Content, in.Context, nullableSize(size), meta, now, now)
		if err != nil {
			return fmt.Errorf("failed to create knowledge entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Debug("Knowledge entry created", "id", id, "scope", in.ScopeID)
	return r.Get(ctx, id)
}

// Get returns one entry.
func (r *EntryRepository) Get(ctx context.Context, id string) (*knowledge.Entry, error) {
	return getEntry(ctx, r.db.conn, id)
}

func getEntry(ctx context.Context, q querier, id string) (*knowledge.Entry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, entryColumns+" WHERE k.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, errors.NewEntryNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge entry %s: %w", id, err)
	}
	return e, nil
}

// List returns the entries owned by a scope, oldest first.
func (r *EntryRepository) List(ctx context.Context, scopeID string) ([]*knowledge.Entry, error) {
	scope, err := loadScope(ctx, r.db.conn, scopeID)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		return nil, errors.NewScopeNotFoundError(scopeID)
	}
	rows, err := r.db.conn.QueryContext(ctx,
		entryColumns+" WHERE k.scope_id = ? ORDER BY k.created_at, k.id", scope.pk)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	return scanEntries(rows)
}

// Update applies the non-nil fields of in atomically.
func (r *EntryRepository) Update(ctx context.Context, in *knowledge.EntryUpdate) (*knowledge.Entry, error) {
	if err := knowledge.Validate(in); err != nil {
		return nil, err
	}

	err := r.db.mutate(ctx, "entry.update", func(tx *sql.Tx) error {
		e, err := getEntry(ctx, tx, in.ID)
		if err != nil {
			return err
		}

		scopeID := e.ScopeID
		if in.ScopeID != nil {
			scopeID = *in.ScopeID
		}
		scope, err := loadScope(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		if scope == nil {
			return errors.NewScopeNotFoundError(scopeID)
		}

		if in.Content != nil {
			e.Content = *in.Content
		}
		if in.Context != nil {
			e.Context = *in.Context
		}
		switch {
		case in.ClearTaskSize:
			e.TaskSize = knowledge.TaskSizeNone
		case in.TaskSize != nil:
			if e.TaskSize, err = knowledge.ParseTaskSize(*in.TaskSize); err != nil {
				return err
			}
		}
		if in.Metaknowledge != nil {
			e.Metaknowledge = *in.Metaknowledge
		}
		meta, err := encodeMeta(e.Metaknowledge)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE knowledge
			SET scope_id = ?, content = ?, context = ?, task_size = ?, metaknowledge = ?, updated_at = ?
			WHERE id = ?
		`, scope.pk, e.Content, e.Context, nullableSize(e.TaskSize), meta, formatTime(time.Now()), in.ID)
		if err != nil {
			return fmt.Errorf("failed to update knowledge entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, in.ID)
}

// Delete removes an entry and prunes conflict records it leaves empty.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	return r.db.mutate(ctx, "entry.delete", func(tx *sql.Tx) error {
		n, err := removeEntries(ctx, tx, "id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NewEntryNotFoundError(id)
		}
		return nil
	})
}
