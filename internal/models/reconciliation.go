package models

import (
	"fmt"
	"time"
)

// ParticipantKind distinguishes the two roster variants.
type ParticipantKind string

const (
	ParticipantStudent ParticipantKind = "STUDENT"
	ParticipantStaff   ParticipantKind = "STAFF"
)

// PlannedStatus is what the planning layer says should happen.
type PlannedStatus string

const (
	PlannedAttending   PlannedStatus = "ATTENDING"
	PlannedAbsent      PlannedStatus = "ABSENT"
	PlannedRescheduled PlannedStatus = "RESCHEDULED"
	PlannedCredited    PlannedStatus = "CREDITED"
	PlannedSwapped     PlannedStatus = "SWAPPED"
)

// Label is the human readable form of the planned status.
func (s PlannedStatus) Label() string {
	switch s {
	case PlannedAttending:
		return "Attending"
	case PlannedAbsent:
		return "Absent"
	case PlannedRescheduled:
		return "Rescheduled"
	case PlannedCredited:
		return "Credited"
	case PlannedSwapped:
		return "Swapped"
	}
	return string(s)
}

// ActualStatus is what the tutor log recorded.
type ActualStatus string

const (
	ActualNotLogged    ActualStatus = "NOT_LOGGED"
	ActualAttended     ActualStatus = "ATTENDED"
	ActualDidNotAttend ActualStatus = "DID_NOT_ATTEND"
	// ActualUnrecorded means a tutor log exists but holds no attendance row for the participant.
	ActualUnrecorded ActualStatus = "UNRECORDED"
)

// Label is the human readable form of the actual status.
func (s ActualStatus) Label() string {
	switch s {
	case ActualNotLogged:
		return "Not logged"
	case ActualAttended:
		return "Attended"
	case ActualDidNotAttend:
		return "Did not attend"
	case ActualUnrecorded:
		return "Unrecorded"
	}
	return string(s)
}

// RedirectState reports how a reschedule or swap link resolved.
type RedirectState string

const (
	RedirectNone       RedirectState = "NONE"
	RedirectResolved   RedirectState = "RESOLVED"
	RedirectUnresolved RedirectState = "UNRESOLVED"
)

// CrossReference points at the makeup session of a rescheduled student or at the replacement of a
// swapped staff member.
type CrossReference struct {
	ParticipantID string  `json:"participant_id"`
	SessionID     *string `json:"session_id,omitempty"`
	SessionDate   string  `json:"session_date,omitempty"`
	StartTime     string  `json:"start_time,omitempty"`
	EndTime       string  `json:"end_time,omitempty"`
	StaffID       *string `json:"staff_id,omitempty"`
	StaffName     string  `json:"staff_name,omitempty"`
	Label         string  `json:"label"`
}

// ParticipantReconciliation is the shared result type for both roster variants.
type ParticipantReconciliation struct {
	ParticipantID   string           `json:"participant_id"`
	Kind            ParticipantKind  `json:"kind"`
	PersonID        string           `json:"person_id"`
	Name            string           `json:"name"`
	Role            *StaffRole       `json:"role,omitempty"`
	PlannedStatus   PlannedStatus    `json:"planned_status"`
	PlannedLabel    string           `json:"planned_label"`
	PlannedCrossRef *CrossReference  `json:"planned_cross_ref,omitempty"`
	Redirect        RedirectState    `json:"redirect"`
	DanglingRef     *string          `json:"dangling_ref,omitempty"`
	ActualStatus    ActualStatus     `json:"actual_status"`
	ActualRole      *LoggedStaffRole `json:"actual_role,omitempty"`
	ActualLabel     string           `json:"actual_label"`
}

// ActualDisplay renders the actual status, adding the logged role for attending staff.
func ActualDisplay(status ActualStatus, role *LoggedStaffRole) string {
	if status == ActualAttended && role != nil && *role != "" {
		return fmt.Sprintf("%s (%s)", status.Label(), *role)
	}
	return status.Label()
}

// UnplannedAttendance is a tutor log attendance row for someone who was not on the planned roster.
type UnplannedAttendance struct {
	Kind         ParticipantKind  `json:"kind"`
	PersonID     string           `json:"person_id"`
	Name         string           `json:"name"`
	ActualStatus ActualStatus     `json:"actual_status"`
	ActualRole   *LoggedStaffRole `json:"actual_role,omitempty"`
	ActualLabel  string           `json:"actual_label"`
}

// ReconciliationSummary counts participants per status.
type ReconciliationSummary struct {
	Planned map[PlannedStatus]int `json:"planned"`
	Actual  map[ActualStatus]int  `json:"actual"`
}

// SessionReconciliation is the planned-versus-actual view of one session.
type SessionReconciliation struct {
	Session           Session                     `json:"session"`
	Title             string                      `json:"title"`
	DateLabel         string                      `json:"date_label"`
	Logged            bool                        `json:"logged"`
	TutorLogID        *string                     `json:"tutor_log_id,omitempty"`
	Students          []ParticipantReconciliation `json:"students"`
	Staff             []ParticipantReconciliation `json:"staff"`
	UnplannedStudents []UnplannedAttendance       `json:"unplanned_students"`
	UnplannedStaff    []UnplannedAttendance       `json:"unplanned_staff"`
	Summary           ReconciliationSummary       `json:"summary"`
	GeneratedAt       time.Time                   `json:"generated_at"`
}
