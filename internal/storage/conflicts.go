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

// ConflictRepository stores conflict records
type ConflictRepository struct {
	db *DB
}

// NewConflictRepository creates a new conflict repository
func NewConflictRepository(db *DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// Create records that activeID supersedes every suppressed id. All ids must
// name existing entries.
func (r *ConflictRepository) Create(ctx context.Context, activeID string, suppressed []string) (*knowledge.ConflictRecord, error) {
	rec := &knowledge.ConflictRecord{
		ID:            uuid.New().String(),
		ActiveID:      activeID,
		SuppressedIDs: append([]string(nil), suppressed...),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	err := r.db.mutate(ctx, "conflict.create", func(tx *sql.Tx) error {
		for _, id := range append([]string{rec.ActiveID}, rec.SuppressedIDs...) {
			var one int
			err := tx.QueryRowContext(ctx, "SELECT 1 FROM knowledge WHERE id = ?", id).Scan(&one)
			if err == sql.ErrNoRows {
				return errors.NewEntryNotFoundError(id)
			}
			if err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO conflicts (id, active_id, created_at) VALUES (?, ?, ?)",
			rec.ID, rec.ActiveID, formatTime(rec.CreatedAt)); err != nil {
			return fmt.Errorf("failed to create conflict record: %w", err)
		}
		for _, id := range rec.SuppressedIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO conflict_suppressed (conflict_id, entry_id) VALUES (?, ?)", rec.ID, id); err != nil {
				return fmt.Errorf("failed to record suppression: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Conflict recorded",
		"id", rec.ID,
		"active", rec.ActiveID,
		"suppressed", len(rec.SuppressedIDs),
	)
	return rec, nil
}

// Get returns one conflict record.
func (r *ConflictRepository) Get(ctx context.Context, id string) (*knowledge.ConflictRecord, error) {
	list, err := r.list(ctx, "WHERE c.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.NewConflictNotFoundError(id)
	}
	return list[0], nil
}

// List returns every conflict record ordered by creation time.
func (r *ConflictRepository) List(ctx context.Context) ([]*knowledge.ConflictRecord, error) {
	return r.list(ctx, "")
}

func (r *ConflictRepository) list(ctx context.Context, where string, args ...interface{}) ([]*knowledge.ConflictRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT c.id, c.active_id, c.created_at, s.entry_id
		FROM conflicts c
		JOIN conflict_suppressed s ON s.conflict_id = c.id
		`+where+`
		ORDER BY c.created_at, c.id, s.entry_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	var (
		out  []*knowledge.ConflictRecord
		last *knowledge.ConflictRecord
	)
	for rows.Next() {
		var id, active, created, entryID string
		if err := rows.Scan(&id, &active, &created, &entryID); err != nil {
			return nil, err
		}
		if last == nil || last.ID != id {
			last = &knowledge.ConflictRecord{ID: id, ActiveID: active, CreatedAt: parseTime(created)}
			out = append(out, last)
		}
		last.SuppressedIDs = append(last.SuppressedIDs, entryID)
	}
	return out, rows.Err()
}

// Delete removes a conflict record, lifting its suppressions.
func (r *ConflictRepository) Delete(ctx context.Context, id string) error {
	return r.db.mutate(ctx, "conflict.delete", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM conflicts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete conflict record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NewConflictNotFoundError(id)
		}
		return nil
	})
}
