package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// GenerateTimetableRequest asks the engine to build and commit a term timetable.
type GenerateTimetableRequest struct {
	JobID        string                 `json:"job_id,omitempty"`
	AcademicYear string                 `json:"academic_year" validate:"required"`
	Semester     int                    `json:"semester" validate:"required,min=1"`
	Courses      []models.CourseSection `json:"courses" validate:"dive"`
	Rooms        []models.Room          `json:"rooms" validate:"dive"`
	Lecturers    []models.Lecturer      `json:"lecturers" validate:"dive"`
	Constraints  []json.RawMessage      `json:"constraints"`
	TimeSlots    []models.TimeSlot      `json:"time_slots,omitempty" validate:"dive"`
	Days         []models.Weekday       `json:"days,omitempty"`
}

// Normalize trims identifiers and replaces absent lists with empty ones.
func (r *GenerateTimetableRequest) Normalize() {
	r.AcademicYear = strings.TrimSpace(r.AcademicYear)
	r.JobID = strings.TrimSpace(r.JobID)
	if r.Courses == nil {
		r.Courses = []models.CourseSection{}
	}
	if r.Rooms == nil {
		r.Rooms = []models.Room{}
	}
	if r.Lecturers == nil {
		r.Lecturers = []models.Lecturer{}
	}
	if r.Constraints == nil {
		r.Constraints = []json.RawMessage{}
	}
}

// TermKey identifies the targeted term.
func (r GenerateTimetableRequest) TermKey() string {
	return models.TermKey(r.AcademicYear, r.Semester)
}

// GenerationResult reports the outcome of one generation run.
type GenerationResult struct {
	JobID            string                  `json:"job_id"`
	AcademicYear     string                  `json:"academic_year"`
	Semester         int                     `json:"semester"`
	Success          bool                    `json:"success"`
	EntriesGenerated int                     `json:"entries_generated"`
	EntriesSkipped   int                     `json:"entries_skipped"`
	ConflictsCount   int                     `json:"conflicts_count"`
	Method           models.GenerationMethod `json:"method,omitempty"`
	DurationSeconds  float64                 `json:"duration_seconds"`
	Error            string                  `json:"error,omitempty"`
	ErrorCode        string                  `json:"error_code,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// GenerationAccepted acknowledges an asynchronous run.
type GenerationAccepted struct {
	JobID  string                  `json:"job_id"`
	Status models.GenerationStatus `json:"status"`
}

// GenerationJobStatus tracks an asynchronous run.
type GenerationJobStatus struct {
	JobID        string                  `json:"job_id"`
	Status       models.GenerationStatus `json:"status"`
	AcademicYear string                  `json:"academic_year"`
	Semester     int                     `json:"semester"`
	Attempt      int                     `json:"attempt"`
	Result       *GenerationResult       `json:"result,omitempty"`
	Error        string                  `json:"error,omitempty"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// TermQuery selects one academic term.
type TermQuery struct {
	AcademicYear string `form:"academic_year" json:"academic_year" validate:"required"`
	Semester     int    `form:"semester" json:"semester" validate:"required,min=1"`
}
