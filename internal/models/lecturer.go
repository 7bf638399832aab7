package models

// AvailabilityWindow is a declared teaching window on one day, [StartTime, EndTime).
type AvailabilityWindow struct {
	LecturerID string    `db:"lecturer_id" json:"lecturer_id,omitempty"`
	Day        Weekday   `db:"day" json:"day"`
	StartTime  ClockTime `db:"start_time" json:"start_time"`
	EndTime    ClockTime `db:"end_time" json:"end_time"`
}

// Contains reports whether the window covers the whole slot on the given day.
func (w AvailabilityWindow) Contains(day Weekday, slot TimeSlot) bool {
	return w.Day == day && w.StartTime <= slot.StartTime && slot.EndTime <= w.EndTime
}

// Lecturer is a teaching staff member with their weekly availability.
type Lecturer struct {
	ID           string               `db:"id" json:"id"`
	Name         string               `db:"name" json:"name,omitempty"`
	Availability []AvailabilityWindow `db:"-" json:"availability"`
}
