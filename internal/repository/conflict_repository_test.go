package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

var conflictColumns = []string{"id", "entry_id", "conflicting_entry_id", "kind", "description", "resolved", "academic_year", "semester", "created_at"}

func TestConflictRepositoryInsertAvailabilityConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_conflicts")).
		WithArgs(sqlmock.AnyArg(), "e1", nil, "AVAILABILITY", "lecturer l1 is not available", false, "2024/2025", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	conflict := &models.Conflict{
		EntryID:      "e1",
		Kind:         models.ConflictAvailability,
		Description:  "lecturer l1 is not available",
		AcademicYear: "2024/2025",
		Semester:     2,
	}
	require.NoError(t, repo.Insert(context.Background(), nil, conflict))
	assert.NotEmpty(t, conflict.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryDeleteByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_conflicts WHERE academic_year = $1 AND semester = $2")).
		WithArgs("2024/2025", 2).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByTerm(context.Background(), nil, "2024/2025", 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryListUnresolvedByEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	rows := sqlmock.NewRows(conflictColumns).
		AddRow("cf1", "e1", "e2", "ROOM", "room r1 double-booked", false, "2024/2025", 1, time.Now()).
		AddRow("cf2", "e3", nil, "AVAILABILITY", "lecturer l1 is not available", false, "2024/2025", 1, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (entry_id = $1 OR conflicting_entry_id = $1) AND resolved = FALSE")).
		WithArgs("e1").
		WillReturnRows(rows)

	conflicts, err := repo.ListUnresolvedByEntry(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	require.NotNil(t, conflicts[0].ConflictingEntryID)
	assert.Equal(t, "e2", *conflicts[0].ConflictingEntryID)
	assert.Nil(t, conflicts[1].ConflictingEntryID)
	assert.Equal(t, models.ConflictAvailability, conflicts[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
