package models

import "time"

// ClassStatus captures whether a weekly template still produces sessions.
type ClassStatus string

const (
	ClassStatusActive   ClassStatus = "ACTIVE"
	ClassStatusInactive ClassStatus = "INACTIVE"
	ClassStatusFull     ClassStatus = "FULL"
)

// Valid reports whether the status is a known value.
func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusActive, ClassStatusInactive, ClassStatusFull:
		return true
	}
	return false
}

// Class is a weekly recurring template. Start and end times are time-of-day strings (HH:MM:SS).
type Class struct {
	ID          string      `db:"id" json:"id"`
	SubjectID   *string     `db:"subject_id" json:"subject_id,omitempty"`
	SubjectName *string     `db:"subject_name" json:"subject_name,omitempty"`
	Level       string      `db:"level" json:"level"`
	DayOfWeek   int         `db:"day_of_week" json:"day_of_week"`
	StartTime   string      `db:"start_time" json:"start_time"`
	EndTime     string      `db:"end_time" json:"end_time"`
	Room        *string     `db:"room" json:"room,omitempty"`
	Status      ClassStatus `db:"status" json:"status"`
	Notes       *string     `db:"notes" json:"notes,omitempty"`
	CreatedBy   *string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassFilter narrows class listings.
type ClassFilter struct {
	Status    ClassStatus
	DayOfWeek *int
	SubjectID string
	Search    string
	Page      int
	PageSize  int
}

// EnrollmentStatus tracks whether an enrollment or staff assignment is current.
type EnrollmentStatus string

const (
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusInactive EnrollmentStatus = "INACTIVE"
)

// ClassStudent enrolls a student into a class from StartDate until EndDate (inclusive, open when nil).
type ClassStudent struct {
	ID          string           `db:"id" json:"id"`
	ClassID     string           `db:"class_id" json:"class_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name,omitempty"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	StartDate   time.Time        `db:"start_date" json:"start_date"`
	EndDate     *time.Time       `db:"end_date" json:"end_date,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// EffectiveOn reports whether the enrollment covers the calendar date.
func (e ClassStudent) EffectiveOn(date time.Time) bool {
	return effective(e.Status, e.StartDate, e.EndDate, date)
}

// ClassStaff assigns a staff member to a class with the role they take in generated sessions.
type ClassStaff struct {
	ID        string           `db:"id" json:"id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	StaffID   string           `db:"staff_id" json:"staff_id"`
	StaffName string           `db:"staff_name" json:"staff_name,omitempty"`
	Type      StaffRole        `db:"type" json:"type"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	StartDate time.Time        `db:"start_date" json:"start_date"`
	EndDate   *time.Time       `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// EffectiveOn reports whether the assignment covers the calendar date.
func (a ClassStaff) EffectiveOn(date time.Time) bool {
	return effective(a.Status, a.StartDate, a.EndDate, date)
}

func effective(status EnrollmentStatus, start time.Time, end *time.Time, date time.Time) bool {
	if status != EnrollmentStatusActive {
		return false
	}
	day := calendarDay(date)
	if calendarDay(start).After(day) {
		return false
	}
	return end == nil || !calendarDay(*end).Before(day)
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
