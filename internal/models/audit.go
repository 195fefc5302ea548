package models

import "time"

// Audit actions recorded by the audit middleware.
const (
	AuditActionPrecreate      = "SESSIONS_PRECREATE"
	AuditActionClassCreate    = "CLASS_CREATE"
	AuditActionClassUpdate    = "CLASS_UPDATE"
	AuditActionClassStatus    = "CLASS_STATUS"
	AuditActionEnrollment     = "CLASS_ENROLLMENT"
	AuditActionSessionCreate  = "SESSION_CREATE"
	AuditActionSessionUpdate  = "SESSION_UPDATE"
	AuditActionSessionDelete  = "SESSION_DELETE"
	AuditActionRosterChange   = "ROSTER_CHANGE"
	AuditActionPlanChange     = "ROSTER_PLAN_CHANGE"
	AuditActionTutorLogCreate = "TUTOR_LOG_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
