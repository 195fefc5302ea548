package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/dates"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

const defaultPrecreateMaxRangeDays = 120

type materializerClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error)
}

type materializerEnrollmentReader interface {
	ListStudents(ctx context.Context, classID string) ([]models.ClassStudent, error)
	ListStaff(ctx context.Context, classID string) ([]models.ClassStaff, error)
}

type materializerSessionWriter interface {
	CreateMaterialized(ctx context.Context, session *models.Session, students []models.SessionStudent, staff []models.SessionStaff) (bool, error)
}

// MaterializerConfig controls how dates map to timestamps and how wide a single run may be.
type MaterializerConfig struct {
	Location     *time.Location
	MaxRangeDays int
}

// PrecreateParams describes one materialization run. Start and End are inclusive calendar dates.
type PrecreateParams struct {
	Start     time.Time
	End       time.Time
	ClassID   *string
	CreatedBy *string
	Trigger   string
}

// MaterializerService expands weekly class templates into dated sessions with their initial roster.
type MaterializerService struct {
	classes     materializerClassReader
	enrollments materializerEnrollmentReader
	sessions    materializerSessionWriter
	cache       *CacheService
	metrics     *MetricsService
	cfg         MaterializerConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewMaterializerService constructs the service.
func NewMaterializerService(
	classes materializerClassReader,
	enrollments materializerEnrollmentReader,
	sessions materializerSessionWriter,
	cache *CacheService,
	metrics *MetricsService,
	cfg MaterializerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *MaterializerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = defaultPrecreateMaxRangeDays
	}
	return &MaterializerService{
		classes:     classes,
		enrollments: enrollments,
		sessions:    sessions,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// PrecreateSessions handles an on-demand request from an administrator.
func (s *MaterializerService) PrecreateSessions(ctx context.Context, req dto.PrecreateSessionsRequest, actorID string) (*dto.PrecreateSessionsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid precreate payload")
	}
	start, err := dates.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_date")
	}
	end, err := dates.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_date")
	}

	params := PrecreateParams{Start: start, End: end, ClassID: req.ClassID, Trigger: PrecreateTriggerAPI}
	if actorID != "" {
		params.CreatedBy = &actorID
	}
	return s.Precreate(ctx, params)
}

// Precreate materializes every ACTIVE class (or the single requested class) on each matching
// weekday in [Start, End]. Dates already covered by a session for the class are skipped, so the
// operation can be repeated safely. One failing class or date never stops the others. When ctx is
// cancelled the counts so far are returned alongside the error.
func (s *MaterializerService) Precreate(ctx context.Context, params PrecreateParams) (*dto.PrecreateSessionsResult, error) {
	start := dates.Truncate(params.Start, time.UTC)
	end := dates.Truncate(params.End, time.UTC)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if days := dates.DaysBetween(start, end); days > s.cfg.MaxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range of %d days exceeds the maximum of %d", days, s.cfg.MaxRangeDays))
	}

	classes, err := s.loadClasses(ctx, params.ClassID)
	if err != nil {
		return nil, err
	}

	result := &dto.PrecreateSessionsResult{
		StartDate: start.Format(dates.DateLayout),
		EndDate:   end.Format(dates.DateLayout),
	}
	var interrupted error
	for i := range classes {
		if err := ctx.Err(); err != nil {
			interrupted = appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "precreate interrupted")
			break
		}
		s.materializeClass(ctx, &classes[i], start, end, params.CreatedBy, result)
	}

	s.record(params.Trigger, result)
	if result.Created > 0 {
		// ctx may already be done; committed sessions still need their views dropped.
		_ = s.cache.DropMatching(context.WithoutCancel(ctx), reconciliationCachePattern)
	}
	if interrupted != nil {
		s.logger.Warn("precreate interrupted",
			zap.String("trigger", params.Trigger),
			zap.Int("created", result.Created),
			zap.Int("failed", result.Failed),
		)
		return result, interrupted
	}
	s.logger.Info("sessions precreated",
		zap.String("trigger", params.Trigger),
		zap.String("start_date", result.StartDate),
		zap.String("end_date", result.EndDate),
		zap.Int("classes", len(classes)),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *MaterializerService) loadClasses(ctx context.Context, classID *string) ([]models.Class, error) {
	if classID == nil || *classID == "" {
		classes, err := s.classes.ListByStatus(ctx, models.ClassStatusActive)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
		}
		return classes, nil
	}

	class, err := s.classes.FindByID(ctx, *classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.Status != models.ClassStatusActive {
		return nil, nil
	}
	return []models.Class{*class}, nil
}

func (s *MaterializerService) materializeClass(ctx context.Context, class *models.Class, start, end time.Time, createdBy *string, result *dto.PrecreateSessionsResult) {
	candidates := dates.WeekdaysBetween(start, end, time.Weekday(class.DayOfWeek))
	if len(candidates) == 0 {
		return
	}
	log := s.logger.With(zap.String("class_id", class.ID))

	startClock, endClock, err := classClocks(class)
	if err != nil {
		log.Warn("skipping class with invalid times", zap.Error(err))
		result.Failed += len(candidates)
		return
	}

	enrolled, err := s.enrollments.ListStudents(ctx, class.ID)
	if err != nil {
		log.Warn("failed to load class students", zap.Error(err))
		result.Failed += len(candidates)
		return
	}
	assigned, err := s.enrollments.ListStaff(ctx, class.ID)
	if err != nil {
		log.Warn("failed to load class staff", zap.Error(err))
		result.Failed += len(candidates)
		return
	}

	for _, date := range candidates {
		if ctx.Err() != nil {
			result.Failed++
			continue
		}
		session := &models.Session{
			ClassID:     &class.ID,
			SubjectID:   class.SubjectID,
			Type:        models.SessionTypeClass,
			SessionDate: date,
			StartAt:     dates.Combine(date, startClock, s.cfg.Location).UTC(),
			EndAt:       dates.Combine(date, endClock, s.cfg.Location).UTC(),
			CreatedBy:   createdBy,
		}
		students, staff := rosterFor(date, enrolled, assigned)

		created, err := s.sessions.CreateMaterialized(ctx, session, students, staff)
		switch {
		case err != nil:
			log.Warn("failed to materialize session", zap.String("date", date.Format(dates.DateLayout)), zap.Error(err))
			result.Failed++
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}
}

func (s *MaterializerService) record(trigger string, result *dto.PrecreateSessionsResult) {
	if trigger == "" {
		trigger = PrecreateTriggerAPI
	}
	s.metrics.RecordPrecreate(trigger, result.Created, result.Skipped, result.Failed)
}

func classClocks(class *models.Class) (dates.Clock, dates.Clock, error) {
	start, err := dates.ParseClock(class.StartTime)
	if err != nil {
		return dates.Clock{}, dates.Clock{}, err
	}
	end, err := dates.ParseClock(class.EndTime)
	if err != nil {
		return dates.Clock{}, dates.Clock{}, err
	}
	if !start.Before(end) {
		return dates.Clock{}, dates.Clock{}, fmt.Errorf("start time %s is not before end time %s", start, end)
	}
	return start, end, nil
}

// rosterFor mirrors the enrollments and assignments effective on date. Each person appears once;
// the first effective assignment decides a staff member's role.
func rosterFor(date time.Time, enrolled []models.ClassStudent, assigned []models.ClassStaff) ([]models.SessionStudent, []models.SessionStaff) {
	var students []models.SessionStudent
	seenStudents := make(map[string]struct{}, len(enrolled))
	for _, enrollment := range enrolled {
		if !enrollment.EffectiveOn(date) {
			continue
		}
		if _, ok := seenStudents[enrollment.StudentID]; ok {
			continue
		}
		seenStudents[enrollment.StudentID] = struct{}{}
		students = append(students, models.SessionStudent{StudentID: enrollment.StudentID})
	}

	var staff []models.SessionStaff
	seenStaff := make(map[string]struct{}, len(assigned))
	for _, assignment := range assigned {
		if !assignment.EffectiveOn(date) {
			continue
		}
		if _, ok := seenStaff[assignment.StaffID]; ok {
			continue
		}
		seenStaff[assignment.StaffID] = struct{}{}
		staff = append(staff, models.SessionStaff{StaffID: assignment.StaffID, Type: assignment.Type})
	}
	return students, staff
}
