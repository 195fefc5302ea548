package dto

import "github.com/altitutor/admin-api/internal/models"

// CreateTutorLogRequest files the post-session record in one go.
type CreateTutorLogRequest struct {
	SessionID  string                   `json:"session_id" validate:"required"`
	Students   []TutorLogStudentInput   `json:"students" validate:"dive"`
	Staff      []TutorLogStaffInput     `json:"staff" validate:"required,min=1,dive"`
	Topics     []TutorLogTopicInput     `json:"topics" validate:"dive"`
	TopicFiles []TutorLogTopicFileInput `json:"topic_files" validate:"dive"`
	Notes      []string                 `json:"notes" validate:"dive,required,max=4000"`
}

type TutorLogStudentInput struct {
	StudentID string `json:"student_id" validate:"required"`
	Attended  bool   `json:"attended"`
}

type TutorLogStaffInput struct {
	StaffID  string                 `json:"staff_id" validate:"required"`
	Attended bool                   `json:"attended"`
	Type     models.LoggedStaffRole `json:"type" validate:"required,oneof=PRIMARY ASSISTANT TRIAL"`
}

type TutorLogTopicInput struct {
	TopicID    string   `json:"topic_id" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"dive,required"`
}

type TutorLogTopicFileInput struct {
	TopicFileID string   `json:"topic_file_id" validate:"required"`
	StudentIDs  []string `json:"student_ids" validate:"dive,required"`
}
