package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func TestRemoteEntryAcceptsNumericIDsAndDayAliases(t *testing.T) {
	payload := `[
		{"course_id": 11, "room_id": "R-1", "lecturer_id": 7, "day": "monday", "time_slot_id": 3},
		{"course_id": "c2", "room_id": 2, "lecturer_id": "l2", "day": 5, "time_slot_id": "s1"}
	]`

	var entries []RemoteEntry
	require.NoError(t, json.Unmarshal([]byte(payload), &entries))
	require.Len(t, entries, 2)

	first := entries[0].ToModel("2024/2025", 2)
	assert.Equal(t, "11", first.CourseID)
	assert.Equal(t, "7", first.LecturerID)
	assert.Equal(t, "3", first.TimeSlotID)
	assert.Equal(t, models.Monday, first.Day)
	assert.Equal(t, 2, first.Semester)
	assert.Equal(t, models.Friday, entries[1].Day)
	assert.Equal(t, FlexibleID("2"), entries[1].RoomID)
}

func TestRemoteEntryRejectsUnknownDay(t *testing.T) {
	var entry RemoteEntry
	assert.Error(t, json.Unmarshal([]byte(`{"course_id":"c1","day":"SUNDAY"}`), &entry))
}

func TestGenerateTimetableRequestNormalize(t *testing.T) {
	req := GenerateTimetableRequest{AcademicYear: " 2024/2025 ", Semester: 1}
	req.Normalize()

	assert.Equal(t, "2024/2025", req.AcademicYear)
	assert.NotNil(t, req.Courses)
	assert.NotNil(t, req.Rooms)
	assert.NotNil(t, req.Lecturers)
	assert.NotNil(t, req.Constraints)
	assert.Equal(t, "2024/2025:1", req.TermKey())
}
