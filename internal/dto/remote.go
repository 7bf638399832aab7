package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// RemoteOptimizeRequest is the body sent to the external optimiser.
type RemoteOptimizeRequest struct {
	Courses     []models.CourseSection `json:"courses"`
	Rooms       []models.Room          `json:"rooms"`
	Lecturers   []models.Lecturer      `json:"lecturers"`
	Constraints []json.RawMessage      `json:"constraints"`

	JobID        string `json:"-"`
	AcademicYear string `json:"-"`
	Semester     int    `json:"-"`
}

// FlexibleID decodes identifiers sent either as JSON strings or numbers.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*id = FlexibleID(raw)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = FlexibleID(number.String())
	return nil
}

// RemoteEntry is one placement returned by the optimiser.
type RemoteEntry struct {
	CourseID   FlexibleID     `json:"course_id"`
	RoomID     FlexibleID     `json:"room_id"`
	LecturerID FlexibleID     `json:"lecturer_id"`
	Day        models.Weekday `json:"day"`
	TimeSlotID FlexibleID     `json:"time_slot_id"`
}

// ToModel converts the wire entry into a TimetableEntry for the given term.
func (e RemoteEntry) ToModel(academicYear string, semester int) models.TimetableEntry {
	return models.TimetableEntry{
		CourseID:     string(e.CourseID),
		RoomID:       string(e.RoomID),
		LecturerID:   string(e.LecturerID),
		Day:          e.Day,
		TimeSlotID:   string(e.TimeSlotID),
		AcademicYear: academicYear,
		Semester:     semester,
	}
}
