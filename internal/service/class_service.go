package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/dates"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	UpdateStatus(ctx context.Context, id string, status models.ClassStatus) error
}

type enrollmentRepository interface {
	ListStudents(ctx context.Context, classID string) ([]models.ClassStudent, error)
	ListStaff(ctx context.Context, classID string) ([]models.ClassStaff, error)
	HasActiveStudent(ctx context.Context, classID, studentID string) (bool, error)
	HasActiveStaff(ctx context.Context, classID, staffID string) (bool, error)
	CreateStudent(ctx context.Context, enrollment *models.ClassStudent) error
	CreateStaff(ctx context.Context, assignment *models.ClassStaff) error
	EndStudent(ctx context.Context, classID, studentID string, endDate time.Time) (bool, error)
	EndStaff(ctx context.Context, classID, staffID string, endDate time.Time) (bool, error)
}

// ClassService coordinates weekly class templates and who is attached to them.
type ClassService struct {
	repo        classRepository
	enrollments enrollmentRepository
	invalidator reconciliationInvalidator
	location    *time.Location
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewClassService constructs ClassService. loc decides which calendar day "today" is.
func NewClassService(repo classRepository, enrollments enrollmentRepository, invalidator reconciliationInvalidator, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ClassService{repo: repo, enrollments: enrollments, invalidator: invalidator, location: loc, validator: validate, logger: logger, now: time.Now}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid class status")
	}
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list classes")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	return class, nil
}

// Create adds a new class template. New classes are ACTIVE unless told otherwise.
func (s *ClassService) Create(ctx context.Context, req dto.CreateClassRequest, actorID string) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	start, end, err := parseClassTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.ClassStatusActive
	}
	class := &models.Class{
		SubjectID: req.SubjectID,
		Level:     strings.TrimSpace(req.Level),
		DayOfWeek: *req.DayOfWeek,
		StartTime: start.String(),
		EndTime:   end.String(),
		Room:      req.Room,
		Status:    status,
		Notes:     req.Notes,
		CreatedBy: actorPtr(actorID),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, writeError(err, "class already exists", "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.Int("day_of_week", class.DayOfWeek))
	return class, nil
}

// Update replaces the template fields. Sessions already materialized keep their own times.
func (s *ClassService) Update(ctx context.Context, id string, req dto.UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	start, end, err := parseClassTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	class.SubjectID = req.SubjectID
	class.Level = strings.TrimSpace(req.Level)
	class.DayOfWeek = *req.DayOfWeek
	class.StartTime = start.String()
	class.EndTime = end.String()
	class.Room = req.Room
	class.Notes = req.Notes

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, writeError(err, "class already exists", "failed to update class")
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateAll(ctx)
	}
	return class, nil
}

// SetStatus soft-disables or re-enables a class. Classes are never hard deleted.
func (s *ClassService) SetStatus(ctx context.Context, id string, req dto.UpdateClassStatusRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class status")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	if class.Status == req.Status {
		return class, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, internalError(err, "failed to update class status")
	}
	s.logger.Info("class status changed", zap.String("class_id", id), zap.String("from", string(class.Status)), zap.String("to", string(req.Status)))
	class.Status = req.Status
	return class, nil
}

// ListEnrollments returns the students and staff attached to a class, past and present.
func (s *ClassService) ListEnrollments(ctx context.Context, classID string) (*dto.ClassEnrollments, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	students, err := s.enrollments.ListStudents(ctx, classID)
	if err != nil {
		return nil, internalError(err, "failed to list class students")
	}
	staff, err := s.enrollments.ListStaff(ctx, classID)
	if err != nil {
		return nil, internalError(err, "failed to list class staff")
	}
	if students == nil {
		students = []models.ClassStudent{}
	}
	if staff == nil {
		staff = []models.ClassStaff{}
	}
	return &dto.ClassEnrollments{Students: students, Staff: staff}, nil
}

// EnrollStudent opens an enrollment from the requested start date, today when omitted.
func (s *ClassService) EnrollStudent(ctx context.Context, classID string, req dto.EnrollStudentRequest) (*models.ClassStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	startDate, err := s.startDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}

	active, err := s.enrollments.HasActiveStudent(ctx, classID, req.StudentID)
	if err != nil {
		return nil, internalError(err, "failed to check enrollment")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in class")
	}

	enrollment := &models.ClassStudent{
		ClassID:   classID,
		StudentID: req.StudentID,
		Status:    models.EnrollmentStatusActive,
		StartDate: startDate,
	}
	if err := s.enrollments.CreateStudent(ctx, enrollment); err != nil {
		return nil, writeError(err, "student already enrolled in class", "failed to enroll student")
	}
	return enrollment, nil
}

// UnenrollStudent closes the open enrollment as of today so earlier dates still materialize.
func (s *ClassService) UnenrollStudent(ctx context.Context, classID, studentID string) error {
	closed, err := s.enrollments.EndStudent(ctx, classID, studentID, s.today())
	if err != nil {
		return internalError(err, "failed to unenroll student")
	}
	if !closed {
		return appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
	}
	return nil
}

// AssignStaff opens a staff assignment. The role defaults to MAIN_TUTOR.
func (s *ClassService) AssignStaff(ctx context.Context, classID string, req dto.AssignStaffRequest) (*models.ClassStaff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	startDate, err := s.startDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}

	active, err := s.enrollments.HasActiveStaff(ctx, classID, req.StaffID)
	if err != nil {
		return nil, internalError(err, "failed to check staff assignment")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "staff member already assigned to class")
	}

	role := req.Type
	if role == "" {
		role = models.StaffRoleMainTutor
	}
	assignment := &models.ClassStaff{
		ClassID:   classID,
		StaffID:   req.StaffID,
		Type:      role,
		Status:    models.EnrollmentStatusActive,
		StartDate: startDate,
	}
	if err := s.enrollments.CreateStaff(ctx, assignment); err != nil {
		return nil, writeError(err, "staff member already assigned to class", "failed to assign staff")
	}
	return assignment, nil
}

// UnassignStaff closes the open assignment as of today.
func (s *ClassService) UnassignStaff(ctx context.Context, classID, staffID string) error {
	closed, err := s.enrollments.EndStaff(ctx, classID, staffID, s.today())
	if err != nil {
		return internalError(err, "failed to unassign staff")
	}
	if !closed {
		return appErrors.Clone(appErrors.ErrNotFound, "active staff assignment not found")
	}
	return nil
}

func (s *ClassService) today() time.Time {
	return dates.Truncate(s.now(), s.location)
}

func (s *ClassService) startDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.today(), nil
	}
	date, err := dates.ParseDate(raw)
	if err != nil {
		return time.Time{}, validationError(err, "invalid start_date")
	}
	return date, nil
}

func parseClassTimes(rawStart, rawEnd string) (dates.Clock, dates.Clock, error) {
	start, err := dates.ParseClock(rawStart)
	if err != nil {
		return dates.Clock{}, dates.Clock{}, validationError(err, "invalid start_time")
	}
	end, err := dates.ParseClock(rawEnd)
	if err != nil {
		return dates.Clock{}, dates.Clock{}, validationError(err, "invalid end_time")
	}
	if !start.Before(end) {
		return dates.Clock{}, dates.Clock{}, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return start, end, nil
}
