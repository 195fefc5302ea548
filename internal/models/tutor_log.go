package models

import "time"

// LoggedStaffRole is the role a staff member actually performed according to the tutor log.
type LoggedStaffRole string

const (
	LoggedRolePrimary   LoggedStaffRole = "PRIMARY"
	LoggedRoleAssistant LoggedStaffRole = "ASSISTANT"
	LoggedRoleTrial     LoggedStaffRole = "TRIAL"
)

// NoteTargetTutorLog is the notes.target_type for tutor log notes.
const NoteTargetTutorLog = "tutor_logs"

// TutorLog is the immutable post-session record. A session has at most one.
type TutorLog struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TutorLogStudentAttendance struct {
	ID          string `db:"id" json:"id"`
	TutorLogID  string `db:"tutor_log_id" json:"tutor_log_id"`
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name,omitempty"`
	Attended    bool   `db:"attended" json:"attended"`
}

type TutorLogStaffAttendance struct {
	ID         string          `db:"id" json:"id"`
	TutorLogID string          `db:"tutor_log_id" json:"tutor_log_id"`
	StaffID    string          `db:"staff_id" json:"staff_id"`
	StaffName  string          `db:"staff_name" json:"staff_name,omitempty"`
	Attended   bool            `db:"attended" json:"attended"`
	Type       LoggedStaffRole `db:"type" json:"type"`
}

// TutorLogTopic records curriculum coverage and the students it applied to.
type TutorLogTopic struct {
	ID         string   `db:"id" json:"id"`
	TutorLogID string   `db:"tutor_log_id" json:"tutor_log_id"`
	TopicID    string   `db:"topic_id" json:"topic_id"`
	StudentIDs []string `db:"-" json:"student_ids"`
}

// TutorLogTopicFile records a worksheet or resource used and who worked on it.
type TutorLogTopicFile struct {
	ID          string   `db:"id" json:"id"`
	TutorLogID  string   `db:"tutor_log_id" json:"tutor_log_id"`
	TopicFileID string   `db:"topics_files_id" json:"topic_file_id"`
	StudentIDs  []string `db:"-" json:"student_ids"`
}

// Note is a free-text note attached to another record.
type Note struct {
	ID         string    `db:"id" json:"id"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   string    `db:"target_id" json:"target_id"`
	Note       string    `db:"note" json:"note"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TutorLogDetail aggregates a log and all its sub-rows.
type TutorLogDetail struct {
	TutorLog
	StudentAttendance []TutorLogStudentAttendance `json:"student_attendance"`
	StaffAttendance   []TutorLogStaffAttendance   `json:"staff_attendance"`
	Topics            []TutorLogTopic             `json:"topics"`
	TopicFiles        []TutorLogTopicFile         `json:"topic_files"`
	Notes             []Note                      `json:"notes"`
}
