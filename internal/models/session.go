package models

import "time"

// SessionType classifies a dated occurrence.
type SessionType string

const (
	SessionTypeClass            SessionType = "CLASS"
	SessionTypeDrafting         SessionType = "DRAFTING"
	SessionTypeSubsidyInterview SessionType = "SUBSIDY_INTERVIEW"
	SessionTypeTrialSession     SessionType = "TRIAL_SESSION"
	SessionTypeTrialShift       SessionType = "TRIAL_SHIFT"
	SessionTypeMeeting          SessionType = "MEETING"
)

// Session is one concrete dated occurrence. SessionDate is the calendar date (midnight UTC) used
// for (class, date) deduplication; StartAt and EndAt are absolute instants.
type Session struct {
	ID          string      `db:"id" json:"id"`
	ClassID     *string     `db:"class_id" json:"class_id,omitempty"`
	SubjectID   *string     `db:"subject_id" json:"subject_id,omitempty"`
	Type        SessionType `db:"type" json:"type"`
	SessionDate time.Time   `db:"session_date" json:"session_date"`
	StartAt     time.Time   `db:"start_at" json:"start_at"`
	EndAt       time.Time   `db:"end_at" json:"end_at"`
	Notes       *string     `db:"notes" json:"notes,omitempty"`
	CreatedBy   *string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	From     *time.Time
	To       *time.Time
	ClassID  string
	Type     SessionType
	Page     int
	PageSize int
}
