package models

// CourseSection is a schedulable unit of a course for one term, owned by one lecturer.
type CourseSection struct {
	ID                 string `db:"id" json:"id"`
	Code               string `db:"code" json:"code,omitempty"`
	ExpectedEnrollment int    `db:"expected_enrollment" json:"expected_enrollment"`
	CreditHours        int    `db:"credit_hours" json:"credit_hours"`
	LecturerID         string `db:"lecturer_id" json:"lecturer_id"`
	DepartmentID       string `db:"department_id" json:"department_id,omitempty"`
}

// Room is a physical teaching space.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name,omitempty"`
	Capacity int    `db:"capacity" json:"capacity"`
	Building string `db:"building" json:"building,omitempty"`
}

// TimeSlot is a daily teaching period. The same slots apply to every day.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
}
