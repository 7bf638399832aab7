package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

type timetableReader interface {
	ListByTerm(ctx context.Context, academicYear string, semester int) ([]models.TimetableEntry, error)
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
}

type conflictReader interface {
	ListByTerm(ctx context.Context, academicYear string, semester int) ([]models.Conflict, error)
	ListUnresolvedByEntry(ctx context.Context, entryID string) ([]models.Conflict, error)
}

type catalogReader interface {
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	FindSection(ctx context.Context, id string) (*models.CourseSection, error)
	ListLecturers(ctx context.Context, ids []string) ([]models.Lecturer, error)
}

// ConflictServiceConfig tunes suggestion ranking.
type ConflictServiceConfig struct {
	Weights scheduler.ScoringWeights
	Days    []models.Weekday
}

// ConflictService reports conflicts of committed timetables and proposes alternatives.
type ConflictService struct {
	entries   timetableReader
	conflicts conflictReader
	catalog   catalogReader
	weights   scheduler.ScoringWeights
	days      []models.Weekday
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(entries timetableReader, conflicts conflictReader, catalog catalogReader, validate *validator.Validate, logger *zap.Logger, cfg ConflictServiceConfig) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	days := validDays(cfg.Days)
	if len(days) == 0 {
		days = append([]models.Weekday(nil), models.TeachingDays...)
	}
	weights := cfg.Weights
	if weights.Availability == 0 && weights.Capacity == 0 && weights.SameDay == 0 && weights.SameBuilding == 0 && len(weights.ProximityPoints) == 0 {
		weights = scheduler.DefaultScoringWeights()
	}
	return &ConflictService{
		entries:   entries,
		conflicts: conflicts,
		catalog:   catalog,
		weights:   weights,
		days:      days,
		validator: validate,
		logger:    logger,
	}
}

// ListEntries returns the committed timetable of a term.
func (s *ConflictService) ListEntries(ctx context.Context, query dto.TermQuery) ([]models.TimetableEntry, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term query")
	}
	entries, err := s.entries.ListByTerm(ctx, query.AcademicYear, query.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	if entries == nil {
		entries = []models.TimetableEntry{}
	}
	return entries, nil
}

// List returns the conflicts recorded when the term was last generated.
func (s *ConflictService) List(ctx context.Context, query dto.TermQuery) ([]models.Conflict, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term query")
	}
	conflicts, err := s.conflicts.ListByTerm(ctx, query.AcademicYear, query.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return conflicts, nil
}

// Detect re-runs conflict detection over the committed term without writing anything.
func (s *ConflictService) Detect(ctx context.Context, query dto.TermQuery) (*dto.ConflictReport, error) {
	entries, err := s.ListEntries(ctx, query)
	if err != nil {
		return nil, err
	}
	slots, err := s.catalog.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	lecturers, err := s.catalog.ListLecturers(ctx, lecturerIDs(entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturers")
	}

	conflicts := scheduler.DetectConflicts(entries, indexSlots(slots), indexLecturers(lecturers))
	report := &dto.ConflictReport{
		AcademicYear:   query.AcademicYear,
		Semester:       query.Semester,
		EntriesChecked: len(entries),
		Conflicts:      make([]models.Conflict, 0, len(conflicts)),
	}
	for _, conflict := range conflicts {
		conflict.AcademicYear = query.AcademicYear
		conflict.Semester = query.Semester
		if conflict.Kind.Hard() {
			report.HardConflicts++
		}
		report.Conflicts = append(report.Conflicts, conflict)
	}
	return report, nil
}

// Suggest ranks alternative placements for a committed entry.
func (s *ConflictService) Suggest(ctx context.Context, entryID string) (*dto.SuggestionsResponse, error) {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	target := scheduler.Target{
		Entry:   *entry,
		Section: models.CourseSection{ID: entry.CourseID, LecturerID: entry.LecturerID},
	}
	section, err := s.catalog.FindSection(ctx, entry.CourseID)
	switch {
	case err == nil:
		target.Section = *section
	case errors.Is(err, sql.ErrNoRows):
		s.logger.Debug("course section not in catalog, assuming no enrollment", zap.String("course_id", entry.CourseID))
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course section")
	}

	lecturers, err := s.catalog.ListLecturers(ctx, []string{entry.LecturerID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
	}
	target.Lecturer = models.Lecturer{ID: entry.LecturerID}
	if len(lecturers) > 0 {
		target.Lecturer = lecturers[0]
	}

	slots, err := s.catalog.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	rooms, err := s.catalog.ListRooms(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	for _, slot := range slots {
		if slot.ID == entry.TimeSlotID {
			target.Slot = slot
			break
		}
	}
	target.Room = models.Room{ID: entry.RoomID}
	for _, room := range rooms {
		if room.ID == entry.RoomID {
			target.Room = room
			break
		}
	}

	counterparts, err := s.counterparts(ctx, *entry)
	if err != nil {
		return nil, err
	}

	suggestions := scheduler.SuggestAlternatives(target, slots, rooms, s.days, counterparts, s.weights)
	if suggestions == nil {
		suggestions = []scheduler.Suggestion{}
	}
	return &dto.SuggestionsResponse{EntryID: entry.ID, Suggestions: suggestions}, nil
}

// counterparts resolves the unresolved conflicts of entry into the entries it clashes with.
func (s *ConflictService) counterparts(ctx context.Context, entry models.TimetableEntry) ([]models.TimetableEntry, error) {
	conflicts, err := s.conflicts.ListUnresolvedByEntry(ctx, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry conflicts")
	}
	wanted := make(map[string]bool, len(conflicts))
	for _, conflict := range conflicts {
		if other := conflict.Counterpart(entry.ID); other != "" {
			wanted[other] = true
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	term, err := s.entries.ListByTerm(ctx, entry.AcademicYear, entry.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	out := make([]models.TimetableEntry, 0, len(wanted))
	for _, candidate := range term {
		if wanted[candidate.ID] {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func lecturerIDs(entries []models.TimetableEntry) []string {
	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.LecturerID == "" || seen[entry.LecturerID] {
			continue
		}
		seen[entry.LecturerID] = true
		ids = append(ids, entry.LecturerID)
	}
	return ids
}
