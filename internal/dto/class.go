package dto

import "github.com/altitutor/admin-api/internal/models"

// CreateClassRequest creates a weekly class template.
type CreateClassRequest struct {
	SubjectID *string            `json:"subject_id"`
	Level     string             `json:"level" validate:"required,max=120"`
	DayOfWeek *int               `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string             `json:"start_time" validate:"required"`
	EndTime   string             `json:"end_time" validate:"required"`
	Room      *string            `json:"room" validate:"omitempty,max=60"`
	Status    models.ClassStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE FULL"`
	Notes     *string            `json:"notes"`
}

// UpdateClassRequest replaces the editable class fields. Existing sessions are not touched.
type UpdateClassRequest struct {
	SubjectID *string `json:"subject_id"`
	Level     string  `json:"level" validate:"required,max=120"`
	DayOfWeek *int    `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room" validate:"omitempty,max=60"`
	Notes     *string `json:"notes"`
}

// UpdateClassStatusRequest soft-disables or re-enables a class.
type UpdateClassStatusRequest struct {
	Status models.ClassStatus `json:"status" validate:"required,oneof=ACTIVE INACTIVE FULL"`
}

// EnrollStudentRequest adds a student to a class from StartDate (defaults to today).
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	StartDate string `json:"start_date"`
}

// AssignStaffRequest adds a staff member to a class.
type AssignStaffRequest struct {
	StaffID   string           `json:"staff_id" validate:"required"`
	Type      models.StaffRole `json:"type" validate:"omitempty,oneof=MAIN_TUTOR SECONDARY_TUTOR TRIAL_TUTOR"`
	StartDate string           `json:"start_date"`
}

// ClassEnrollments lists who is attached to a class.
type ClassEnrollments struct {
	Students []models.ClassStudent `json:"students"`
	Staff    []models.ClassStaff   `json:"staff"`
}
