package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type entryStoreStub struct {
	mu        sync.Mutex
	terms     map[string][]models.TimetableEntry
	locks     int
	deletes   int
	seq       int
	insertErr error
}

func newEntryStoreStub() *entryStoreStub {
	return &entryStoreStub{terms: map[string][]models.TimetableEntry{}}
}

func (s *entryStoreStub) LockTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	return nil
}

func (s *entryStoreStub) DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.TermKey(academicYear, semester)
	removed := len(s.terms[key])
	delete(s.terms, key)
	s.deletes++
	return int64(removed), nil
}

func (s *entryStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.ID = fmt.Sprintf("entry-%d", s.seq)
	key := models.TermKey(entry.AcademicYear, entry.Semester)
	s.terms[key] = append(s.terms[key], *entry)
	return nil
}

func (s *entryStoreStub) term(academicYear string, semester int) []models.TimetableEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TimetableEntry(nil), s.terms[models.TermKey(academicYear, semester)]...)
}

type conflictStoreStub struct {
	deletes  int
	inserted []models.Conflict
}

func (s *conflictStoreStub) DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) error {
	s.deletes++
	s.inserted = nil
	return nil
}

func (s *conflictStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, conflict *models.Conflict) error {
	s.inserted = append(s.inserted, *conflict)
	return nil
}

type metricStoreStub struct {
	metrics []models.GenerationMetric
}

func (s *metricStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, metric *models.GenerationMetric) error {
	s.metrics = append(s.metrics, *metric)
	return nil
}

type catalogStub struct {
	slots []models.TimeSlot
	err   error
	calls int
}

func (s *catalogStub) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	s.calls++
	return s.slots, s.err
}

type remoteStub struct {
	entries []models.TimetableEntry
	calls   int
}

func (s *remoteStub) Enabled() bool { return true }

func (s *remoteStub) Optimize(ctx context.Context, req dto.RemoteOptimizeRequest) []models.TimetableEntry {
	s.calls++
	return s.entries
}

type solverStub struct {
	result   *scheduler.Result
	err      error
	instance scheduler.Instance
}

func (s *solverStub) Solve(ctx context.Context, inst scheduler.Instance) (*scheduler.Result, error) {
	s.instance = inst
	return s.result, s.err
}

func clock(raw string) models.ClockTime {
	return models.MustClockTime(raw)
}

func generationRequest() dto.GenerateTimetableRequest {
	courses := make([]models.CourseSection, 0, 5)
	for i := 1; i <= 5; i++ {
		courses = append(courses, models.CourseSection{
			ID:                 fmt.Sprintf("c%d", i),
			ExpectedEnrollment: 20 + i,
			LecturerID:         fmt.Sprintf("l%d", i),
		})
	}
	return dto.GenerateTimetableRequest{
		JobID:        "job-1",
		AcademicYear: "2024/2025",
		Semester:     1,
		Courses:      courses,
		Rooms: []models.Room{
			{ID: "r1", Capacity: 40},
			{ID: "r2", Capacity: 30},
			{ID: "r3", Capacity: 50},
		},
		TimeSlots: []models.TimeSlot{
			{ID: "s1", StartTime: clock("08:00"), EndTime: clock("09:00")},
			{ID: "s2", StartTime: clock("09:00"), EndTime: clock("10:00")},
			{ID: "s3", StartTime: clock("10:00"), EndTime: clock("11:00")},
			{ID: "s4", StartTime: clock("13:00"), EndTime: clock("14:00")},
		},
	}
}

func seededSolver() *scheduler.Solver {
	params := scheduler.DefaultParameters()
	params.Seed = 7
	params.PopulationSize = 30
	params.MaxGenerations = 150
	params.StallGenerations = 20
	return scheduler.NewSolver(params)
}

type generatorFixture struct {
	svc       *TimetableGeneratorService
	mock      sqlmock.Sqlmock
	entries   *entryStoreStub
	conflicts *conflictStoreStub
	metrics   *metricStoreStub
	catalog   *catalogStub
}

func newGeneratorFixture(t *testing.T, remote remoteScheduler, solver timetableSolver) *generatorFixture {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	f := &generatorFixture{
		mock:      mock,
		entries:   newEntryStoreStub(),
		conflicts: &conflictStoreStub{},
		metrics:   &metricStoreStub{},
		catalog:   &catalogStub{},
	}
	f.svc = NewTimetableGeneratorService(f.entries, f.conflicts, f.metrics, f.catalog, remote, solver, tx, NewMetricsService(), nil, nil, TimetableGeneratorConfig{})
	return f
}

func TestGenerateFallsBackToGeneticWhenRemoteFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	observer := &recordingObserver{}
	remote := NewRemoteOptimizer(config.OptimizerConfig{URL: server.URL, Timeout: time.Second}, observer, nil, nil)
	f := newGeneratorFixture(t, remote, seededSolver())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	req := generationRequest()
	result, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.True(t, result.Success)
	assert.Equal(t, models.GenerationMethodGenetic, result.Method)
	assert.Equal(t, 5, result.EntriesGenerated)
	assert.Zero(t, result.ConflictsCount)
	assert.Contains(t, result.Warnings, "remote optimizer unavailable; used genetic solver")
	assert.Equal(t, []models.OptimizerFailureReason{models.OptimizerFailureStatus}, observer.reasons())

	stored := f.entries.term("2024/2025", 1)
	require.Len(t, stored, 5)
	assert.Zero(t, scheduler.HardConflictCount(stored))
	seen := map[string]bool{}
	for _, entry := range stored {
		seen[entry.CourseID] = true
	}
	assert.Len(t, seen, 5)

	require.Len(t, f.metrics.metrics, 1)
	metric := f.metrics.metrics[0]
	assert.Equal(t, "job-1", metric.JobID)
	assert.Equal(t, models.GenerationMethodGenetic, metric.Method)
	assert.True(t, metric.Success)
	assert.Equal(t, 5, metric.EntriesGenerated)
	assert.Nil(t, metric.ErrorMessage)
	assert.Equal(t, 0, f.catalog.calls)
}

func TestGenerateFallsBackWhenRemoteReturnsWrongShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"foo":1},{"bar":2}]`))
	}))
	defer server.Close()

	observer := &recordingObserver{}
	remote := NewRemoteOptimizer(config.OptimizerConfig{URL: server.URL, Timeout: time.Second}, observer, nil, nil)
	f := newGeneratorFixture(t, remote, seededSolver())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Generate(context.Background(), generationRequest())
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.True(t, result.Success)
	assert.Equal(t, models.GenerationMethodGenetic, result.Method)
	assert.Equal(t, 5, result.EntriesGenerated)
	assert.Contains(t, result.Warnings, "remote optimizer unavailable; used genetic solver")
	assert.Equal(t, []models.OptimizerFailureReason{models.OptimizerFailureMalformed}, observer.reasons())
	assert.Len(t, f.entries.term("2024/2025", 1), 5)
}

func TestGenerateUsesRemoteEntriesAndRecordsConflicts(t *testing.T) {
	remote := &remoteStub{entries: []models.TimetableEntry{
		{CourseID: "c1", RoomID: "r1", LecturerID: "l1", Day: models.Monday, TimeSlotID: "s1"},
		{CourseID: "c2", LecturerID: "l2", Day: models.Monday, TimeSlotID: "s2"},
		{CourseID: "c3", RoomID: "r1", LecturerID: "l3", Day: models.Monday, TimeSlotID: "s1"},
	}}
	solver := &solverStub{}
	f := newGeneratorFixture(t, remote, solver)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Generate(context.Background(), generationRequest())
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, models.GenerationMethodAI, result.Method)
	assert.Equal(t, 2, result.EntriesGenerated)
	assert.Equal(t, 1, result.EntriesSkipped)
	assert.Equal(t, 1, result.ConflictsCount)
	assert.Contains(t, result.Warnings, "entry 1 skipped: missing room_id")
	assert.Empty(t, solver.instance.Sections)

	require.Len(t, f.conflicts.inserted, 1)
	conflict := f.conflicts.inserted[0]
	assert.Equal(t, models.ConflictRoom, conflict.Kind)
	assert.Equal(t, "entry-1", conflict.EntryID)
	require.NotNil(t, conflict.ConflictingEntryID)
	assert.Equal(t, "entry-2", *conflict.ConflictingEntryID)
	assert.Equal(t, "2024/2025", conflict.AcademicYear)
	assert.Equal(t, 1, conflict.Semester)
}

func TestGenerateEmptyCoursesLeavesStoreUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	observer := &recordingObserver{}
	remote := NewRemoteOptimizer(config.OptimizerConfig{URL: server.URL, Timeout: time.Second}, observer, nil, nil)
	f := newGeneratorFixture(t, remote, seededSolver())
	req := generationRequest()
	req.Courses = nil

	result, err := f.svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrEmptyResult.Code))
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.False(t, result.Success)
	assert.Equal(t, appErrors.ErrEmptyResult.Code, result.ErrorCode)
	assert.Equal(t, []models.OptimizerFailureReason{models.OptimizerFailureEmpty}, observer.reasons())
	assert.Zero(t, f.entries.locks)
	assert.Zero(t, f.entries.deletes)
	assert.Zero(t, f.conflicts.deletes)

	require.Len(t, f.metrics.metrics, 1)
	assert.False(t, f.metrics.metrics[0].Success)
	require.NotNil(t, f.metrics.metrics[0].ErrorMessage)
}

func TestGenerateRejectsInvalidPayloadWithoutMetric(t *testing.T) {
	f := newGeneratorFixture(t, nil, &solverStub{})
	req := generationRequest()
	req.AcademicYear = "  "

	result, err := f.svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, appErrors.ErrValidation.Code, result.ErrorCode)
	assert.Empty(t, f.metrics.metrics)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateUnsatisfiableInstance(t *testing.T) {
	f := newGeneratorFixture(t, nil, seededSolver())
	req := generationRequest()
	req.Rooms = nil

	result, err := f.svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnsatisfiable.Code))
	assert.Equal(t, models.GenerationMethodGenetic, result.Method)
	assert.Zero(t, f.entries.deletes)
	require.Len(t, f.metrics.metrics, 1)
}

func TestGenerateRollsBackWhenNothingSaved(t *testing.T) {
	remote := &remoteStub{entries: []models.TimetableEntry{
		{CourseID: "c1", Day: models.Monday, TimeSlotID: "s1"},
	}}
	f := newGeneratorFixture(t, remote, &solverStub{})
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.Generate(context.Background(), generationRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNothingSaved.Code))
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Equal(t, 1, result.EntriesSkipped)
	assert.Empty(t, f.conflicts.inserted)
}

func TestGenerateRollsBackOnInsertFailure(t *testing.T) {
	f := newGeneratorFixture(t, nil, seededSolver())
	f.entries.insertErr = sql.ErrConnDone
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Generate(context.Background(), generationRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateTwiceReplacesTerm(t *testing.T) {
	f := newGeneratorFixture(t, nil, seededSolver())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	req := generationRequest()
	_, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	first := f.entries.term("2024/2025", 1)

	req.JobID = "job-2"
	_, err = f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	second := f.entries.term("2024/2025", 1)

	require.NoError(t, f.mock.ExpectationsWereMet())
	require.Len(t, first, 5)
	require.Len(t, second, 5)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, 2, f.entries.locks)
	assert.Equal(t, 2, f.conflicts.deletes)
	assert.Len(t, f.metrics.metrics, 2)
}

func TestGenerateLoadsSlotsAndDefaultDays(t *testing.T) {
	solver := &solverStub{result: &scheduler.Result{Entries: []models.TimetableEntry{
		{CourseID: "c1", RoomID: "r1", LecturerID: "l1", Day: models.Friday, TimeSlotID: "late"},
	}}}
	f := newGeneratorFixture(t, nil, solver)
	f.catalog.slots = []models.TimeSlot{
		{ID: "late", StartTime: clock("13:00"), EndTime: clock("14:00")},
		{ID: "early", StartTime: clock("07:00"), EndTime: clock("08:00")},
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	req := generationRequest()
	req.TimeSlots = nil
	_, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, solver.instance.Slots, 2)
	assert.Equal(t, "early", solver.instance.Slots[0].ID)
	assert.Equal(t, models.TeachingDays, solver.instance.Days)
	assert.Equal(t, 1, f.catalog.calls)
}

func TestGenerateHonoursRequestDays(t *testing.T) {
	solver := &solverStub{err: scheduler.ErrUnsatisfiable}
	f := newGeneratorFixture(t, nil, solver)

	req := generationRequest()
	req.Days = []models.Weekday{models.Tuesday, models.Tuesday, "SUN", models.Thursday}
	_, err := f.svc.Generate(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, []models.Weekday{models.Tuesday, models.Thursday}, solver.instance.Days)
}
