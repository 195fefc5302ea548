package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/database"
	"github.com/altitutor/admin-api/pkg/dates"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
}

type sessionRosterReader interface {
	ListStudents(ctx context.Context, sessionID string) ([]models.SessionStudent, error)
	ListStaff(ctx context.Context, sessionID string) ([]models.SessionStaff, error)
}

// SessionService handles ad-hoc session CRUD. Class sessions come from the materializer but can
// be edited here afterwards.
type SessionService struct {
	repo        sessionRepository
	roster      sessionRosterReader
	invalidator reconciliationInvalidator
	location    *time.Location
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(repo sessionRepository, roster sessionRosterReader, invalidator reconciliationInvalidator, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{repo: repo, roster: roster, invalidator: invalidator, location: loc, validator: validate, logger: logger}
}

// List returns sessions in the requested window.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list sessions")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a session with its planned roster.
func (s *SessionService) Get(ctx context.Context, id string) (*dto.SessionDetail, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	students, err := s.roster.ListStudents(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load session students")
	}
	staff, err := s.roster.ListStaff(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load session staff")
	}
	if students == nil {
		students = []models.SessionStudent{}
	}
	if staff == nil {
		staff = []models.SessionStaff{}
	}
	return &dto.SessionDetail{Session: *session, Students: students, Staff: staff}, nil
}

// Create adds an ad-hoc session. The calendar date follows start_at in the configured timezone.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest, actorID string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	if err := validateSessionWindow(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}

	session := &models.Session{
		ClassID:     req.ClassID,
		SubjectID:   req.SubjectID,
		Type:        req.Type,
		SessionDate: dates.Truncate(req.StartAt, s.location),
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Notes:       req.Notes,
		CreatedBy:   actorPtr(actorID),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, writeError(err, "a session already exists for this class on that date", "failed to create session")
	}
	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("type", string(session.Type)))
	return session, nil
}

// Update edits a session. Edits are not checked against the class template.
func (s *SessionService) Update(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	if err := validateSessionWindow(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	moved := !session.StartAt.Equal(req.StartAt) || !session.EndAt.Equal(req.EndAt)
	session.SubjectID = req.SubjectID
	session.Type = req.Type
	session.SessionDate = dates.Truncate(req.StartAt, s.location)
	session.StartAt = req.StartAt.UTC()
	session.EndAt = req.EndAt.UTC()
	session.Notes = req.Notes

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, writeError(err, "a session already exists for this class on that date", "failed to update session")
	}
	if moved && s.invalidator != nil {
		// rescheduled rows elsewhere label this session by its date and time
		s.invalidator.InvalidateAll(ctx)
	} else {
		s.invalidate(ctx, id)
	}
	return session, nil
}

// Delete removes a session along with its roster and tutor log. A session that other sessions
// reschedule students into cannot be deleted until those plans change.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "session not found", "failed to load session")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "session is the reschedule target of another session's roster")
		}
		return internalError(err, "failed to delete session")
	}
	s.logger.Info("session deleted", zap.String("session_id", id))
	s.invalidate(ctx, id)
	return nil
}

func (s *SessionService) invalidate(ctx context.Context, sessionID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, sessionID)
	}
}

func validateSessionWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start_at and end_at are required")
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_at must be before end_at")
	}
	return nil
}
