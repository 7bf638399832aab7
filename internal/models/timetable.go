package models

import (
	"strconv"
	"time"
)

// TimetableEntry is one committed placement of a course section.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	LecturerID   string    `db:"lecturer_id" json:"lecturer_id"`
	Day          Weekday   `db:"day" json:"day"`
	TimeSlotID   string    `db:"time_slot_id" json:"time_slot_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     int       `db:"semester" json:"semester"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MissingFields lists the required placement fields that are empty.
func (e TimetableEntry) MissingFields() []string {
	var missing []string
	if e.CourseID == "" {
		missing = append(missing, "course_id")
	}
	if e.RoomID == "" {
		missing = append(missing, "room_id")
	}
	if e.LecturerID == "" {
		missing = append(missing, "lecturer_id")
	}
	if e.Day == "" {
		missing = append(missing, "day")
	}
	if e.TimeSlotID == "" {
		missing = append(missing, "time_slot_id")
	}
	return missing
}

// TermKey identifies a term as "<academic_year>:<semester>".
func TermKey(academicYear string, semester int) string {
	return academicYear + ":" + strconv.Itoa(semester)
}
