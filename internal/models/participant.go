package models

import "time"

// StaffRole is the planned role of a staff member on a session or class.
type StaffRole string

const (
	StaffRoleMainTutor      StaffRole = "MAIN_TUTOR"
	StaffRoleSecondaryTutor StaffRole = "SECONDARY_TUTOR"
	StaffRoleTrialTutor     StaffRole = "TRIAL_TUTOR"
)

// SessionStudent is a planned-roster row for a student. Reschedule and credit only apply while
// PlannedAbsence is set.
type SessionStudent struct {
	ID                          string    `db:"id" json:"id"`
	SessionID                   string    `db:"session_id" json:"session_id"`
	StudentID                   string    `db:"student_id" json:"student_id"`
	StudentName                 string    `db:"student_name" json:"student_name,omitempty"`
	PlannedAbsence              bool      `db:"planned_absence" json:"planned_absence"`
	IsRescheduled               bool      `db:"is_rescheduled" json:"is_rescheduled"`
	RescheduledSessionStudentID *string   `db:"rescheduled_session_student_id" json:"rescheduled_session_student_id,omitempty"`
	IsCredited                  bool      `db:"is_credited" json:"is_credited"`
	CreatedBy                   *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt                   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                   time.Time `db:"updated_at" json:"updated_at"`
}

// SessionStaff is a planned-roster row for a staff member. A swap links to the replacement's row
// on the same session.
type SessionStaff struct {
	ID                    string    `db:"id" json:"id"`
	SessionID             string    `db:"session_id" json:"session_id"`
	StaffID               string    `db:"staff_id" json:"staff_id"`
	StaffName             string    `db:"staff_name" json:"staff_name,omitempty"`
	Type                  StaffRole `db:"type" json:"type"`
	PlannedAbsence        bool      `db:"planned_absence" json:"planned_absence"`
	IsSwapped             bool      `db:"is_swapped" json:"is_swapped"`
	SwappedSessionStaffID *string   `db:"swapped_session_staff_id" json:"swapped_session_staff_id,omitempty"`
	CreatedBy             *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
