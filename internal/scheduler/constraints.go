// Package scheduler holds the timetable constraint model, the genetic solver and the
// alternative-placement ranking. Everything here is pure: no I/O, no shared state.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

type cellKey struct {
	owner string
	day   models.Weekday
	slot  string
}

// IsRoomFree reports whether no entry in schedule occupies room on (day, slot).
func IsRoomFree(schedule []models.TimetableEntry, roomID string, day models.Weekday, slotID string) bool {
	for _, entry := range schedule {
		if entry.RoomID == roomID && entry.Day == day && entry.TimeSlotID == slotID {
			return false
		}
	}
	return true
}

// IsLecturerFree reports whether the lecturer teaches nothing else on (day, slot).
func IsLecturerFree(schedule []models.TimetableEntry, lecturerID string, day models.Weekday, slotID string) bool {
	for _, entry := range schedule {
		if entry.LecturerID == lecturerID && entry.Day == day && entry.TimeSlotID == slotID {
			return false
		}
	}
	return true
}

// IsWithinAvailability reports whether one of the lecturer's windows on day covers slot.
// A lecturer without windows that day is unavailable, which is not an error.
func IsWithinAvailability(lecturer models.Lecturer, day models.Weekday, slot models.TimeSlot) bool {
	for _, window := range lecturer.Availability {
		if window.Contains(day, slot) {
			return true
		}
	}
	return false
}

// FitsCapacity reports whether the room seats the section's expected enrollment.
func FitsCapacity(room models.Room, section models.CourseSection) bool {
	return room.Capacity >= section.ExpectedEnrollment
}

// HardConflictCount counts colliding entry pairs on (room, day, slot) and on
// (lecturer, day, slot). Three entries in one room cell count as three pairs.
func HardConflictCount(schedule []models.TimetableEntry) int {
	rooms := make(map[cellKey]int, len(schedule))
	lecturers := make(map[cellKey]int, len(schedule))
	count := 0
	for _, entry := range schedule {
		roomKey := cellKey{owner: entry.RoomID, day: entry.Day, slot: entry.TimeSlotID}
		count += rooms[roomKey]
		rooms[roomKey]++

		lecturerKey := cellKey{owner: entry.LecturerID, day: entry.Day, slot: entry.TimeSlotID}
		count += lecturers[lecturerKey]
		lecturers[lecturerKey]++
	}
	return count
}

// DistributionScore rewards lecturers whose sections are spread over distinct days.
// It returns the mean, over lecturers with at least one section, of
// distinct days used / min(sections, len(days)), so the result lies in [0, 1].
func DistributionScore(schedule []models.TimetableEntry, dayCount int) float64 {
	if len(schedule) == 0 || dayCount <= 0 {
		return 0
	}
	var order []string
	sections := make(map[string]int)
	days := make(map[string]map[models.Weekday]struct{})
	for _, entry := range schedule {
		if days[entry.LecturerID] == nil {
			days[entry.LecturerID] = make(map[models.Weekday]struct{})
			order = append(order, entry.LecturerID)
		}
		sections[entry.LecturerID]++
		days[entry.LecturerID][entry.Day] = struct{}{}
	}
	// iterate in first-seen order so the float sum is reproducible
	var total float64
	for _, lecturerID := range order {
		best := sections[lecturerID]
		if dayCount < best {
			best = dayCount
		}
		total += float64(len(days[lecturerID])) / float64(best)
	}
	return total / float64(len(order))
}

// DetectConflicts reports every ROOM and LECTURER collision pair plus every entry
// placed outside its lecturer's availability. Entries whose slot or lecturer is not
// in the catalogs are skipped for the availability check.
func DetectConflicts(schedule []models.TimetableEntry, slots map[string]models.TimeSlot, lecturers map[string]models.Lecturer) []models.Conflict {
	var conflicts []models.Conflict
	conflicts = append(conflicts, pairConflicts(schedule, models.ConflictRoom, func(e models.TimetableEntry) string { return e.RoomID })...)
	conflicts = append(conflicts, pairConflicts(schedule, models.ConflictLecturer, func(e models.TimetableEntry) string { return e.LecturerID })...)

	for _, entry := range schedule {
		slot, ok := slots[entry.TimeSlotID]
		if !ok {
			continue
		}
		lecturer, ok := lecturers[entry.LecturerID]
		if !ok {
			continue
		}
		if IsWithinAvailability(lecturer, entry.Day, slot) {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			EntryID:      entry.ID,
			Kind:         models.ConflictAvailability,
			Description:  fmt.Sprintf("lecturer %s is not available on %s %s-%s", entry.LecturerID, entry.Day, slot.StartTime, slot.EndTime),
			AcademicYear: entry.AcademicYear,
			Semester:     entry.Semester,
		})
	}
	return conflicts
}

func pairConflicts(schedule []models.TimetableEntry, kind models.ConflictKind, owner func(models.TimetableEntry) string) []models.Conflict {
	groups := make(map[cellKey][]int)
	var order []cellKey
	for idx, entry := range schedule {
		key := cellKey{owner: owner(entry), day: entry.Day, slot: entry.TimeSlotID}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], idx)
	}

	var conflicts []models.Conflict
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				first, second := schedule[members[i]], schedule[members[j]]
				other := second.ID
				conflicts = append(conflicts, models.Conflict{
					EntryID:            first.ID,
					ConflictingEntryID: &other,
					Kind:               kind,
					Description:        fmt.Sprintf("%s %s double-booked on %s slot %s", kindSubject(kind), key.owner, key.day, key.slot),
					AcademicYear:       first.AcademicYear,
					Semester:           first.Semester,
				})
			}
		}
	}
	return conflicts
}

func kindSubject(kind models.ConflictKind) string {
	if kind == models.ConflictRoom {
		return "room"
	}
	return "lecturer"
}
