package models

import "time"

// ConflictKind classifies a detected violation.
type ConflictKind string

const (
	ConflictRoom         ConflictKind = "ROOM"
	ConflictLecturer     ConflictKind = "LECTURER"
	ConflictAvailability ConflictKind = "AVAILABILITY"
)

// Hard reports whether the kind violates a uniqueness invariant.
func (k ConflictKind) Hard() bool {
	return k == ConflictRoom || k == ConflictLecturer
}

// Conflict links two entries (or one, for availability) that violate a constraint.
type Conflict struct {
	ID                 string       `db:"id" json:"id"`
	EntryID            string       `db:"entry_id" json:"entry_id"`
	ConflictingEntryID *string      `db:"conflicting_entry_id" json:"conflicting_entry_id,omitempty"`
	Kind               ConflictKind `db:"kind" json:"kind"`
	Description        string       `db:"description" json:"description"`
	Resolved           bool         `db:"resolved" json:"resolved"`
	AcademicYear       string       `db:"academic_year" json:"academic_year"`
	Semester           int          `db:"semester" json:"semester"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
}

// Counterpart returns the other entry id of the pair, if any.
func (c Conflict) Counterpart(entryID string) string {
	if c.ConflictingEntryID == nil {
		return ""
	}
	if c.EntryID == entryID {
		return *c.ConflictingEntryID
	}
	if *c.ConflictingEntryID == entryID {
		return c.EntryID
	}
	return ""
}
