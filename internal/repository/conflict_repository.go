package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// ConflictRepository stores conflicts detected over committed entries.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs the repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

func (r *ConflictRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteByTerm drops the stored conflicts of a term.
func (r *ConflictRepository) DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) error {
	const query = `DELETE FROM timetable_conflicts WHERE academic_year = $1 AND semester = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, academicYear, semester); err != nil {
		return fmt.Errorf("delete timetable conflicts: %w", err)
	}
	return nil
}

// Insert stores a conflict record.
func (r *ConflictRepository) Insert(ctx context.Context, exec sqlx.ExtContext, conflict *models.Conflict) error {
	if conflict == nil {
		return fmt.Errorf("conflict payload is nil")
	}
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO timetable_conflicts (id, entry_id, conflicting_entry_id, kind, description, resolved, academic_year, semester, created_at)
VALUES (:id, :entry_id, :conflicting_entry_id, :kind, :description, :resolved, :academic_year, :semester, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, conflict); err != nil {
		return fmt.Errorf("insert timetable conflict: %w", err)
	}
	return nil
}

// ListByTerm returns the stored conflicts of a term, oldest first.
func (r *ConflictRepository) ListByTerm(ctx context.Context, academicYear string, semester int) ([]models.Conflict, error) {
	const query = `SELECT id, entry_id, conflicting_entry_id, kind, description, resolved, academic_year, semester, created_at
FROM timetable_conflicts WHERE academic_year = $1 AND semester = $2 ORDER BY created_at ASC, id ASC`
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, academicYear, semester); err != nil {
		return nil, fmt.Errorf("list timetable conflicts: %w", err)
	}
	return conflicts, nil
}

// ListUnresolvedByEntry returns open conflicts where the entry appears on either side.
func (r *ConflictRepository) ListUnresolvedByEntry(ctx context.Context, entryID string) ([]models.Conflict, error) {
	const query = `SELECT id, entry_id, conflicting_entry_id, kind, description, resolved, academic_year, semester, created_at
FROM timetable_conflicts WHERE (entry_id = $1 OR conflicting_entry_id = $1) AND resolved = FALSE ORDER BY created_at ASC, id ASC`
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, entryID); err != nil {
		return nil, fmt.Errorf("list entry conflicts: %w", err)
	}
	return conflicts, nil
}
