package dto

import (
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
)

// ConflictReport is the result of an on-demand detection pass.
type ConflictReport struct {
	AcademicYear   string            `json:"academic_year"`
	Semester       int               `json:"semester"`
	EntriesChecked int               `json:"entries_checked"`
	HardConflicts  int               `json:"hard_conflicts"`
	Conflicts      []models.Conflict `json:"conflicts"`
}

// SuggestionsResponse lists ranked alternatives for one entry.
type SuggestionsResponse struct {
	EntryID     string                 `json:"entry_id"`
	Suggestions []scheduler.Suggestion `json:"suggestions"`
}
