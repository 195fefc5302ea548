package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type tutorLogRepository interface {
	FindBySession(ctx context.Context, sessionID string) (*models.TutorLog, error)
	ListStudentAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStudentAttendance, error)
	ListStaffAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStaffAttendance, error)
	ListTopics(ctx context.Context, tutorLogID string) ([]models.TutorLogTopic, error)
	ListTopicFiles(ctx context.Context, tutorLogID string) ([]models.TutorLogTopicFile, error)
	ListNotes(ctx context.Context, tutorLogID string) ([]models.Note, error)
	Create(ctx context.Context, detail *models.TutorLogDetail) error
}

type tutorLogSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListUnloggedForStaff(ctx context.Context, staffID string, before time.Time) ([]models.Session, error)
}

// TutorLogService files and reads the post-session record of what actually happened.
type TutorLogService struct {
	logs        tutorLogRepository
	sessions    tutorLogSessionReader
	invalidator reconciliationInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewTutorLogService constructs TutorLogService.
func NewTutorLogService(logs tutorLogRepository, sessions tutorLogSessionReader, invalidator reconciliationInvalidator, validate *validator.Validate, logger *zap.Logger) *TutorLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorLogService{logs: logs, sessions: sessions, invalidator: invalidator, validator: validate, logger: logger, now: time.Now}
}

// Create writes the tutor log of a session with all attendance, topics, files and notes. A session
// has at most one log.
func (s *TutorLogService) Create(ctx context.Context, req dto.CreateTutorLogRequest, actorID string) (*models.TutorLogDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid tutor log payload")
	}
	if _, err := s.sessions.FindByID(ctx, req.SessionID); err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	if _, err := s.logs.FindBySession(ctx, req.SessionID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already has a tutor log")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check tutor log")
	}

	detail, err := buildTutorLog(req, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Create(ctx, detail); err != nil {
		return nil, writeError(err, "session already has a tutor log", "failed to create tutor log")
	}

	s.logger.Info("tutor log created",
		zap.String("tutor_log_id", detail.ID),
		zap.String("session_id", detail.SessionID),
		zap.Int("students", len(detail.StudentAttendance)),
		zap.Int("staff", len(detail.StaffAttendance)),
	)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, detail.SessionID)
	}
	return detail, nil
}

// GetBySession returns the full tutor log of a session.
func (s *TutorLogService) GetBySession(ctx context.Context, sessionID string) (*models.TutorLogDetail, error) {
	log, err := s.logs.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "tutor log not found", "failed to load tutor log")
	}
	detail := &models.TutorLogDetail{TutorLog: *log}
	if detail.StudentAttendance, err = s.logs.ListStudentAttendance(ctx, log.ID); err != nil {
		return nil, internalError(err, "failed to load student attendance")
	}
	if detail.StaffAttendance, err = s.logs.ListStaffAttendance(ctx, log.ID); err != nil {
		return nil, internalError(err, "failed to load staff attendance")
	}
	if detail.Topics, err = s.logs.ListTopics(ctx, log.ID); err != nil {
		return nil, internalError(err, "failed to load topics")
	}
	if detail.TopicFiles, err = s.logs.ListTopicFiles(ctx, log.ID); err != nil {
		return nil, internalError(err, "failed to load topic files")
	}
	if detail.Notes, err = s.logs.ListNotes(ctx, log.ID); err != nil {
		return nil, internalError(err, "failed to load notes")
	}
	return detail, nil
}

// ListUnlogged returns the started class sessions a staff member still has to log.
func (s *TutorLogService) ListUnlogged(ctx context.Context, staffID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListUnloggedForStaff(ctx, staffID, s.now().UTC())
	if err != nil {
		return nil, internalError(err, "failed to list unlogged sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

func buildTutorLog(req dto.CreateTutorLogRequest, actorID string) (*models.TutorLogDetail, error) {
	detail := &models.TutorLogDetail{
		TutorLog:          models.TutorLog{SessionID: req.SessionID, CreatedBy: actorID},
		StudentAttendance: make([]models.TutorLogStudentAttendance, 0, len(req.Students)),
		StaffAttendance:   make([]models.TutorLogStaffAttendance, 0, len(req.Staff)),
		Topics:            make([]models.TutorLogTopic, 0, len(req.Topics)),
		TopicFiles:        make([]models.TutorLogTopicFile, 0, len(req.TopicFiles)),
		Notes:             make([]models.Note, 0, len(req.Notes)),
	}

	seenStudents := make(map[string]struct{}, len(req.Students))
	for _, item := range req.Students {
		if _, ok := seenStudents[item.StudentID]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student "+item.StudentID+" is listed more than once")
		}
		seenStudents[item.StudentID] = struct{}{}
		detail.StudentAttendance = append(detail.StudentAttendance, models.TutorLogStudentAttendance{StudentID: item.StudentID, Attended: item.Attended})
	}

	seenStaff := make(map[string]struct{}, len(req.Staff))
	for _, item := range req.Staff {
		if _, ok := seenStaff[item.StaffID]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "staff member "+item.StaffID+" is listed more than once")
		}
		seenStaff[item.StaffID] = struct{}{}
		detail.StaffAttendance = append(detail.StaffAttendance, models.TutorLogStaffAttendance{StaffID: item.StaffID, Attended: item.Attended, Type: item.Type})
	}

	for _, item := range req.Topics {
		detail.Topics = append(detail.Topics, models.TutorLogTopic{TopicID: item.TopicID, StudentIDs: uniqueIDs(item.StudentIDs)})
	}
	for _, item := range req.TopicFiles {
		detail.TopicFiles = append(detail.TopicFiles, models.TutorLogTopicFile{TopicFileID: item.TopicFileID, StudentIDs: uniqueIDs(item.StudentIDs)})
	}
	for _, note := range req.Notes {
		if text := strings.TrimSpace(note); text != "" {
			detail.Notes = append(detail.Notes, models.Note{Note: text})
		}
	}
	return detail, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
