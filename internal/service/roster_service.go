package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/database"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type rosterSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type rosterParticipantStore interface {
	FindStudentByID(ctx context.Context, id string) (*models.SessionStudent, error)
	FindStaffByID(ctx context.Context, id string) (*models.SessionStaff, error)
	FindStudent(ctx context.Context, sessionID, studentID string) (*models.SessionStudent, error)
	FindStaff(ctx context.Context, sessionID, staffID string) (*models.SessionStaff, error)
	CreateStudent(ctx context.Context, row *models.SessionStudent) error
	CreateStaff(ctx context.Context, row *models.SessionStaff) error
	ApplyStudentPlan(ctx context.Context, row *models.SessionStudent, makeup *models.SessionStudent) error
	ApplyStaffPlan(ctx context.Context, row *models.SessionStaff, replacement *models.SessionStaff) error
	DeleteStudent(ctx context.Context, sessionID, studentID string) (bool, error)
	DeleteStaff(ctx context.Context, sessionID, staffID string) (bool, error)
}

type reconciliationInvalidator interface {
	Invalidate(ctx context.Context, sessionIDs ...string)
	InvalidateAll(ctx context.Context)
}

// RosterService edits the planned roster of sessions: who is expected, who is away, and where
// absent students and staff were redirected.
type RosterService struct {
	sessions     rosterSessionReader
	participants rosterParticipantStore
	invalidator  reconciliationInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(sessions rosterSessionReader, participants rosterParticipantStore, invalidator reconciliationInvalidator, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		sessions:     sessions,
		participants: participants,
		invalidator:  invalidator,
		validator:    validate,
		logger:       logger,
	}
}

// AddStudent puts a student on the session roster.
func (s *RosterService) AddStudent(ctx context.Context, sessionID string, req dto.AddSessionStudentRequest, actorID string) (*models.SessionStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session student payload")
	}
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if _, err := s.participants.FindStudent(ctx, sessionID, req.StudentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already on session roster")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check session roster")
	}

	row := &models.SessionStudent{SessionID: sessionID, StudentID: req.StudentID, CreatedBy: actorPtr(actorID)}
	if err := s.participants.CreateStudent(ctx, row); err != nil {
		return nil, writeError(err, "student already on session roster", "failed to add student")
	}
	s.invalidate(ctx, sessionID)
	return row, nil
}

// RemoveStudent takes a student off the session roster.
func (s *RosterService) RemoveStudent(ctx context.Context, sessionID, studentID string) error {
	removed, err := s.participants.DeleteStudent(ctx, sessionID, studentID)
	if err != nil {
		return removeError(err, "failed to remove student")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "student not on session roster")
	}
	s.invalidate(ctx, sessionID)
	return nil
}

// AddStaff puts a staff member on the session roster. The role defaults to MAIN_TUTOR.
func (s *RosterService) AddStaff(ctx context.Context, sessionID string, req dto.AddSessionStaffRequest, actorID string) (*models.SessionStaff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session staff payload")
	}
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if _, err := s.participants.FindStaff(ctx, sessionID, req.StaffID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "staff member already on session roster")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check session roster")
	}

	row := &models.SessionStaff{SessionID: sessionID, StaffID: req.StaffID, Type: req.Type, CreatedBy: actorPtr(actorID)}
	if err := s.participants.CreateStaff(ctx, row); err != nil {
		return nil, writeError(err, "staff member already on session roster", "failed to add staff member")
	}
	s.invalidate(ctx, sessionID)
	return row, nil
}

// RemoveStaff takes a staff member off the session roster.
func (s *RosterService) RemoveStaff(ctx context.Context, sessionID, staffID string) error {
	removed, err := s.participants.DeleteStaff(ctx, sessionID, staffID)
	if err != nil {
		return removeError(err, "failed to remove staff member")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "staff member not on session roster")
	}
	s.invalidate(ctx, sessionID)
	return nil
}

// UpdateStudentPlan records a planned absence and optionally redirects it. A rescheduled student
// gets a makeup row on the target session, created unless one already exists.
func (s *RosterService) UpdateStudentPlan(ctx context.Context, participantID string, req dto.UpdateStudentPlanRequest, actorID string) (*models.SessionStudent, error) {
	row, err := s.participants.FindStudentByID(ctx, participantID)
	if err != nil {
		return nil, lookupError(err, "session student not found", "failed to load session student")
	}

	target := trimmed(req.RescheduleSessionID)
	if !req.PlannedAbsence && (target != "" || req.Credited) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reschedule and credit require a planned absence")
	}
	if target != "" && req.Credited {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a student cannot be both rescheduled and credited")
	}

	var makeup *models.SessionStudent
	if target != "" {
		if target == row.SessionID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reschedule target must be a different session")
		}
		if _, err := s.sessions.FindByID(ctx, target); err != nil {
			return nil, lookupError(err, "reschedule session not found", "failed to load reschedule session")
		}
		existing, err := s.participants.FindStudent(ctx, target, row.StudentID)
		switch {
		case err == nil:
			if existing.PlannedAbsence {
				return nil, appErrors.Clone(appErrors.ErrValidation, "student is planned absent from the reschedule session")
			}
			makeup = existing
		case errors.Is(err, sql.ErrNoRows):
			makeup = &models.SessionStudent{SessionID: target, StudentID: row.StudentID, CreatedBy: actorPtr(actorID)}
		default:
			return nil, internalError(err, "failed to load makeup row")
		}
	}

	affected := []string{row.SessionID}
	if row.RescheduledSessionStudentID != nil {
		if previous, err := s.participants.FindStudentByID(ctx, *row.RescheduledSessionStudentID); err == nil {
			affected = append(affected, previous.SessionID)
		}
	}

	row.PlannedAbsence = req.PlannedAbsence
	row.IsRescheduled = makeup != nil
	row.RescheduledSessionStudentID = nil
	row.IsCredited = req.Credited
	if err := s.participants.ApplyStudentPlan(ctx, row, makeup); err != nil {
		return nil, writeError(err, "makeup row already exists", "failed to update student plan")
	}

	s.logger.Info("student plan updated",
		zap.String("session_student_id", row.ID),
		zap.Bool("planned_absence", row.PlannedAbsence),
		zap.Bool("rescheduled", row.IsRescheduled),
		zap.Bool("credited", row.IsCredited),
	)
	if makeup != nil {
		affected = append(affected, makeup.SessionID)
	}
	s.invalidate(ctx, affected...)
	return row, nil
}

// UpdateStaffPlan records a planned absence and optionally the replacement on the same session.
func (s *RosterService) UpdateStaffPlan(ctx context.Context, participantID string, req dto.UpdateStaffPlanRequest, actorID string) (*models.SessionStaff, error) {
	row, err := s.participants.FindStaffByID(ctx, participantID)
	if err != nil {
		return nil, lookupError(err, "session staff not found", "failed to load session staff")
	}

	swapWith := trimmed(req.SwapStaffID)
	if !req.PlannedAbsence && swapWith != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a swap requires a planned absence")
	}

	var replacement *models.SessionStaff
	if swapWith != "" {
		if swapWith == row.StaffID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "replacement must be a different staff member")
		}
		existing, err := s.participants.FindStaff(ctx, row.SessionID, swapWith)
		switch {
		case err == nil:
			if existing.PlannedAbsence {
				return nil, appErrors.Clone(appErrors.ErrValidation, "replacement is also planned absent")
			}
			replacement = existing
		case errors.Is(err, sql.ErrNoRows):
			replacement = &models.SessionStaff{SessionID: row.SessionID, StaffID: swapWith, Type: row.Type, CreatedBy: actorPtr(actorID)}
		default:
			return nil, internalError(err, "failed to load replacement row")
		}
	}

	row.PlannedAbsence = req.PlannedAbsence
	row.IsSwapped = replacement != nil
	row.SwappedSessionStaffID = nil
	if err := s.participants.ApplyStaffPlan(ctx, row, replacement); err != nil {
		return nil, writeError(err, "replacement already on session roster", "failed to update staff plan")
	}

	s.logger.Info("staff plan updated",
		zap.String("session_staff_id", row.ID),
		zap.Bool("planned_absence", row.PlannedAbsence),
		zap.Bool("swapped", row.IsSwapped),
	)
	s.invalidate(ctx, row.SessionID)
	return row, nil
}

func (s *RosterService) ensureSession(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.FindByID(ctx, sessionID); err != nil {
		return lookupError(err, "session not found", "failed to load session")
	}
	return nil
}

func (s *RosterService) invalidate(ctx context.Context, sessionIDs ...string) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(ctx, sessionIDs...)
}

// removeError reports rows still referenced by a reschedule or swap as conflicts.
func removeError(err error, message string) error {
	if database.IsForeignKeyViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "participant is referenced by another roster row")
	}
	return internalError(err, message)
}

func actorPtr(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
