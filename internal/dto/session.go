package dto

import (
	"time"

	"github.com/altitutor/admin-api/internal/models"
)

// PrecreateSessionsRequest asks for sessions to be materialized over an inclusive date range.
type PrecreateSessionsRequest struct {
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	ClassID   *string `json:"class_id"`
}

// PrecreateSessionsResult reports what one materialization run did.
type PrecreateSessionsResult struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// CreateSessionRequest creates an ad-hoc session.
type CreateSessionRequest struct {
	ClassID   *string            `json:"class_id"`
	SubjectID *string            `json:"subject_id"`
	Type      models.SessionType `json:"type" validate:"required,oneof=CLASS DRAFTING SUBSIDY_INTERVIEW TRIAL_SESSION TRIAL_SHIFT MEETING"`
	StartAt   time.Time          `json:"start_at"`
	EndAt     time.Time          `json:"end_at"`
	Notes     *string            `json:"notes"`
}

// UpdateSessionRequest edits a session. Edits detach it from its class template.
type UpdateSessionRequest struct {
	SubjectID *string            `json:"subject_id"`
	Type      models.SessionType `json:"type" validate:"required,oneof=CLASS DRAFTING SUBSIDY_INTERVIEW TRIAL_SESSION TRIAL_SHIFT MEETING"`
	StartAt   time.Time          `json:"start_at"`
	EndAt     time.Time          `json:"end_at"`
	Notes     *string            `json:"notes"`
}

// AddSessionStudentRequest puts a student on a session's planned roster.
type AddSessionStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// AddSessionStaffRequest puts a staff member on a session's planned roster.
type AddSessionStaffRequest struct {
	StaffID string           `json:"staff_id" validate:"required"`
	Type    models.StaffRole `json:"type" validate:"omitempty,oneof=MAIN_TUTOR SECONDARY_TUTOR TRIAL_TUTOR"`
}

// UpdateStudentPlanRequest records absence, a reschedule to another session or a credit.
type UpdateStudentPlanRequest struct {
	PlannedAbsence      bool    `json:"planned_absence"`
	RescheduleSessionID *string `json:"reschedule_session_id"`
	Credited            bool    `json:"credited"`
}

// UpdateStaffPlanRequest records absence and an optional replacement staff member.
type UpdateStaffPlanRequest struct {
	PlannedAbsence bool    `json:"planned_absence"`
	SwapStaffID    *string `json:"swap_staff_id"`
}

// ExportFormat is the rendering of a reconciliation export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// SessionDetail is a session with its planned roster.
type SessionDetail struct {
	models.Session
	Students []models.SessionStudent `json:"students"`
	Staff    []models.SessionStaff   `json:"staff"`
}
