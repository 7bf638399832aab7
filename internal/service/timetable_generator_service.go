package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
	"github.com/noah-isme/sma-timetable-engine/pkg/middleware/requestid"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableWriter interface {
	LockTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) error
	DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) (int64, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error
}

type conflictWriter interface {
	DeleteByTerm(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int) error
	Insert(ctx context.Context, exec sqlx.ExtContext, conflict *models.Conflict) error
}

type generationMetricWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, metric *models.GenerationMetric) error
}

type timeSlotCatalog interface {
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
}

type remoteScheduler interface {
	Enabled() bool
	Optimize(ctx context.Context, req dto.RemoteOptimizeRequest) []models.TimetableEntry
}

type timetableSolver interface {
	Solve(ctx context.Context, inst scheduler.Instance) (*scheduler.Result, error)
}

// TimetableGeneratorConfig governs orchestration defaults.
type TimetableGeneratorConfig struct {
	Days []models.Weekday
}

// TimetableGeneratorService produces a term timetable, remote first with a local fallback,
// and replaces the stored term atomically.
type TimetableGeneratorService struct {
	entries   timetableWriter
	conflicts conflictWriter
	metricsDB generationMetricWriter
	catalog   timeSlotCatalog
	remote    remoteScheduler
	solver    timetableSolver
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	days      []models.Weekday
	now       func() time.Time
}

// NewTimetableGeneratorService wires generation dependencies.
func NewTimetableGeneratorService(
	entries timetableWriter,
	conflicts conflictWriter,
	metricsDB generationMetricWriter,
	catalog timeSlotCatalog,
	remote remoteScheduler,
	solver timetableSolver,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableGeneratorConfig,
) *TimetableGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if solver == nil {
		solver = scheduler.NewSolver(scheduler.DefaultParameters())
	}
	days := validDays(cfg.Days)
	if len(days) == 0 {
		days = append([]models.Weekday(nil), models.TeachingDays...)
	}
	return &TimetableGeneratorService{
		entries:   entries,
		conflicts: conflicts,
		metricsDB: metricsDB,
		catalog:   catalog,
		remote:    remote,
		solver:    solver,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		days:      days,
		now:       time.Now,
	}
}

// Generate runs one generation for the requested term. The returned result is always
// populated; err is non-nil when nothing was committed.
func (s *TimetableGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error) {
	start := s.now()
	req.Normalize()
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	result := &dto.GenerationResult{
		JobID:        req.JobID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
	}

	if err := s.validator.Struct(req); err != nil {
		return s.finish(ctx, result, start, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload"), false)
	}
	if s.tx == nil || s.entries == nil || s.conflicts == nil {
		return s.finish(ctx, result, start, appErrors.Clone(appErrors.ErrInternal, "timetable storage not configured"), false)
	}

	slots, err := s.resolveSlots(ctx, req)
	if err != nil {
		return s.finish(ctx, result, start, err, true)
	}
	days := validDays(req.Days)
	if len(days) == 0 {
		days = s.days
	}

	var entries []models.TimetableEntry
	if s.remote != nil && s.remote.Enabled() {
		entries = s.remote.Optimize(ctx, dto.RemoteOptimizeRequest{
			Courses:      req.Courses,
			Rooms:        req.Rooms,
			Lecturers:    req.Lecturers,
			Constraints:  req.Constraints,
			JobID:        req.JobID,
			AcademicYear: req.AcademicYear,
			Semester:     req.Semester,
		})
		if len(entries) == 0 {
			result.Warnings = append(result.Warnings, "remote optimizer unavailable; used genetic solver")
		}
	}

	if len(entries) > 0 {
		result.Method = models.GenerationMethodAI
	} else {
		result.Method = models.GenerationMethodGenetic
		solved, err := s.solver.Solve(ctx, scheduler.Instance{
			AcademicYear: req.AcademicYear,
			Semester:     req.Semester,
			Sections:     req.Courses,
			Rooms:        req.Rooms,
			Lecturers:    req.Lecturers,
			Slots:        slots,
			Days:         days,
		})
		switch {
		case errors.Is(err, scheduler.ErrEmptyInstance):
			return s.finish(ctx, result, start, appErrors.Clone(appErrors.ErrEmptyResult, "no course sections to schedule"), true)
		case errors.Is(err, scheduler.ErrUnsatisfiable):
			return s.finish(ctx, result, start, appErrors.Wrap(err, appErrors.ErrUnsatisfiable.Code, appErrors.ErrUnsatisfiable.Status, appErrors.ErrUnsatisfiable.Message), true)
		case err != nil:
			return s.finish(ctx, result, start, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "genetic solver failed"), true)
		}
		s.metrics.ObserveSolver(solved.Stats.Generations)
		s.logger.Info("genetic solver finished",
			zap.String("job_id", req.JobID),
			zap.Int64("seed", solved.Stats.Seed),
			zap.Int("generations", solved.Stats.Generations),
			zap.Int("hard_conflicts", solved.Stats.HardConflicts),
			zap.Bool("feasible", solved.Stats.Feasible),
		)
		entries = solved.Entries
	}

	if len(entries) == 0 {
		return s.finish(ctx, result, start, appErrors.Clone(appErrors.ErrEmptyResult, ""), true)
	}

	if err := s.replaceTerm(ctx, req, entries, slots, result); err != nil {
		return s.finish(ctx, result, start, err, true)
	}
	result.Success = true
	return s.finish(ctx, result, start, nil, true)
}

// replaceTerm swaps the stored term for entries inside a single transaction.
func (s *TimetableGeneratorService) replaceTerm(ctx context.Context, req dto.GenerateTimetableRequest, entries []models.TimetableEntry, slots []models.TimeSlot, result *dto.GenerationResult) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.entries.LockTerm(ctx, tx, req.AcademicYear, req.Semester); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock term")
	}
	if err = s.conflicts.DeleteByTerm(ctx, tx, req.AcademicYear, req.Semester); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear term conflicts")
	}
	removed, err := s.entries.DeleteByTerm(ctx, tx, req.AcademicYear, req.Semester)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear term timetable")
	}

	saved := make([]models.TimetableEntry, 0, len(entries))
	for i := range entries {
		entry := entries[i]
		if reason := invalidEntryReason(entry); reason != "" {
			result.EntriesSkipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d skipped: %s", i, reason))
			continue
		}
		entry.ID = ""
		entry.AcademicYear = req.AcademicYear
		entry.Semester = req.Semester
		if err = s.entries.Insert(ctx, tx, &entry); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable entry")
		}
		saved = append(saved, entry)
	}
	if len(saved) == 0 {
		err = appErrors.Clone(appErrors.ErrNothingSaved, "")
		return err
	}

	detected := scheduler.DetectConflicts(saved, indexSlots(slots), indexLecturers(req.Lecturers))
	for i := range detected {
		conflict := detected[i]
		conflict.AcademicYear = req.AcademicYear
		conflict.Semester = req.Semester
		if err = s.conflicts.Insert(ctx, tx, &conflict); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable conflict")
		}
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
	}

	result.EntriesGenerated = len(saved)
	result.ConflictsCount = len(detected)
	s.logger.Info("timetable committed",
		zap.String("job_id", req.JobID),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("term", req.TermKey()),
		zap.Int64("replaced", removed),
		zap.Int("entries", len(saved)),
		zap.Int("skipped", result.EntriesSkipped),
		zap.Int("conflicts", len(detected)),
	)
	return nil
}

// finish stamps the duration and records the run. Runs rejected before validation
// completed are not recorded as metrics.
func (s *TimetableGeneratorService) finish(ctx context.Context, result *dto.GenerationResult, start time.Time, runErr error, record bool) (*dto.GenerationResult, error) {
	result.DurationSeconds = s.now().Sub(start).Seconds()
	if runErr != nil {
		appErr := appErrors.FromError(runErr)
		result.Success = false
		result.Error = appErr.Error()
		result.ErrorCode = appErr.Code
		s.logger.Warn("timetable generation failed",
			zap.String("job_id", result.JobID),
			zap.String("code", appErr.Code),
			zap.Error(runErr),
		)
	}
	if !record {
		return result, runErr
	}

	s.metrics.ObserveGeneration(result.Method, result.Success, s.now().Sub(start), result.EntriesGenerated, result.ConflictsCount)
	if s.metricsDB != nil {
		metric := &models.GenerationMetric{
			JobID:            result.JobID,
			Method:           result.Method,
			DurationSeconds:  result.DurationSeconds,
			Success:          result.Success,
			EntriesGenerated: result.EntriesGenerated,
			ConflictsCount:   result.ConflictsCount,
			AcademicYear:     result.AcademicYear,
			Semester:         result.Semester,
		}
		if result.Error != "" {
			message := result.Error
			metric.ErrorMessage = &message
		}
		if err := s.metricsDB.Upsert(context.WithoutCancel(ctx), nil, metric); err != nil {
			s.logger.Warn("failed to record generation metric", zap.String("job_id", result.JobID), zap.Error(err))
		}
	}
	return result, runErr
}

func (s *TimetableGeneratorService) resolveSlots(ctx context.Context, req dto.GenerateTimetableRequest) ([]models.TimeSlot, error) {
	slots := append([]models.TimeSlot(nil), req.TimeSlots...)
	if len(slots) == 0 && s.catalog != nil {
		stored, err := s.catalog.ListTimeSlots(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
		}
		slots = stored
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})
	return slots, nil
}

func invalidEntryReason(entry models.TimetableEntry) string {
	if missing := entry.MissingFields(); len(missing) > 0 {
		return "missing " + strings.Join(missing, ", ")
	}
	if !entry.Day.Valid() {
		return fmt.Sprintf("unknown day %q", entry.Day)
	}
	return ""
}

func validDays(days []models.Weekday) []models.Weekday {
	out := make([]models.Weekday, 0, len(days))
	seen := make(map[models.Weekday]bool, len(days))
	for _, day := range days {
		if !day.Valid() || seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out
}

func indexSlots(slots []models.TimeSlot) map[string]models.TimeSlot {
	out := make(map[string]models.TimeSlot, len(slots))
	for _, slot := range slots {
		out[slot.ID] = slot
	}
	return out
}

func indexLecturers(lecturers []models.Lecturer) map[string]models.Lecturer {
	out := make(map[string]models.Lecturer, len(lecturers))
	for _, lecturer := range lecturers {
		out[lecturer.ID] = lecturer
	}
	return out
}
