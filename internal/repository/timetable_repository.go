package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// TimetableRepository persists committed timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockTerm takes a transaction-scoped advisory lock on the term. exec must be a transaction.
func (r *TimetableRepository) LockTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := r.exec(exec).ExecContext(ctx, query, models.TermKey(academicYear, semester)); err != nil {
		return fmt.Errorf("lock timetable term: %w", err)
	}
	return nil
}

// DeleteByTerm removes every entry of the term and reports how many rows went away.
func (r *TimetableRepository) DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) (int64, error) {
	const query = `DELETE FROM timetable_entries WHERE academic_year = $1 AND semester = $2`
	result, err := r.exec(exec).ExecContext(ctx, query, academicYear, semester)
	if err != nil {
		return 0, fmt.Errorf("delete timetable entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("timetable entries rows affected: %w", err)
	}
	return affected, nil
}

// Insert stores one entry, assigning id and created_at when empty.
func (r *TimetableRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	if entry == nil {
		return fmt.Errorf("timetable entry payload is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO timetable_entries (id, course_id, room_id, lecturer_id, day, time_slot_id, academic_year, semester, created_at)
VALUES (:id, :course_id, :room_id, :lecturer_id, :day, :time_slot_id, :academic_year, :semester, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("insert timetable entry: %w", err)
	}
	return nil
}

// ListByTerm returns the committed entries of a term.
func (r *TimetableRepository) ListByTerm(ctx context.Context, academicYear string, semester int) ([]models.TimetableEntry, error) {
	const query = `SELECT id, course_id, room_id, lecturer_id, day, time_slot_id, academic_year, semester, created_at
FROM timetable_entries WHERE academic_year = $1 AND semester = $2 ORDER BY day ASC, time_slot_id ASC, room_id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, academicYear, semester); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// FindByID loads an entry by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	const query = `SELECT id, course_id, room_id, lecturer_id, day, time_slot_id, academic_year, semester, created_at FROM timetable_entries WHERE id = $1`
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}
