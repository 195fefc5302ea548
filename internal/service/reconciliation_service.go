package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/dates"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

const reconciliationCachePattern = "reconciliation:*"

func reconciliationCacheKey(sessionID string) string {
	return "reconciliation:session:" + sessionID
}

type reconciliationStore interface {
	FindSession(ctx context.Context, id string) (*models.Session, error)
	FindClass(ctx context.Context, id string) (*models.Class, error)
	ListStudents(ctx context.Context, sessionID string) ([]models.SessionStudent, error)
	ListStaff(ctx context.Context, sessionID string) ([]models.SessionStaff, error)
	FindStudentParticipant(ctx context.Context, id string) (*models.SessionStudent, error)
	FindStaffParticipant(ctx context.Context, id string) (*models.SessionStaff, error)
	FindTutorLog(ctx context.Context, sessionID string) (*models.TutorLog, error)
	ListStudentAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStudentAttendance, error)
	ListStaffAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStaffAttendance, error)
}

// ReconciliationConfig controls caching and how timestamps are rendered.
type ReconciliationConfig struct {
	Location *time.Location
	CacheTTL time.Duration
}

// ReconciliationService compares the planned roster of a session with what its tutor log
// recorded. It never writes to the store.
type ReconciliationService struct {
	store   reconciliationStore
	cache   *CacheService
	metrics *MetricsService
	cfg     ReconciliationConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewReconciliationService constructs the service.
func NewReconciliationService(store reconciliationStore, cache *CacheService, metrics *MetricsService, cfg ReconciliationConfig, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReconciliationService{store: store, cache: cache, metrics: metrics, cfg: cfg, logger: logger, now: time.Now}
}

// GetSessionReconciliation returns the planned-versus-actual view of a session. The boolean
// reports whether the result came from cache.
func (s *ReconciliationService) GetSessionReconciliation(ctx context.Context, sessionID string) (*models.SessionReconciliation, bool, error) {
	key := reconciliationCacheKey(sessionID)
	var cached models.SessionReconciliation
	if hit, err := s.cache.Fetch(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	result, err := s.build(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Store(ctx, key, result, s.cfg.CacheTTL)
	return result, false, nil
}

// Invalidate drops the cached view of a session.
func (s *ReconciliationService) Invalidate(ctx context.Context, sessionIDs ...string) {
	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if id != "" {
			keys = append(keys, reconciliationCacheKey(id))
		}
	}
	_ = s.cache.Drop(ctx, keys...)
}

// InvalidateAll drops every cached view. Views embed class titles and the dates of sessions they
// point at, so edits to those cannot be traced back to single keys.
func (s *ReconciliationService) InvalidateAll(ctx context.Context) {
	_ = s.cache.DropMatching(ctx, reconciliationCachePattern)
}

func (s *ReconciliationService) build(ctx context.Context, sessionID string) (*models.SessionReconciliation, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDBQuery("session_reconciliation", time.Since(started)) }()

	session, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalError(err, "failed to load session")
	}

	var class *models.Class
	if session.ClassID != nil {
		class, err = s.findClass(ctx, *session.ClassID)
		if err != nil {
			return nil, internalError(err, "failed to load class")
		}
	}

	students, err := s.store.ListStudents(ctx, session.ID)
	if err != nil {
		return nil, internalError(err, "failed to load session students")
	}
	staff, err := s.store.ListStaff(ctx, session.ID)
	if err != nil {
		return nil, internalError(err, "failed to load session staff")
	}

	log, err := s.store.FindTutorLog(ctx, session.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load tutor log")
	}
	logged := log != nil

	var studentRows []models.TutorLogStudentAttendance
	var staffRows []models.TutorLogStaffAttendance
	if logged {
		if studentRows, err = s.store.ListStudentAttendance(ctx, log.ID); err != nil {
			return nil, internalError(err, "failed to load student attendance")
		}
		if staffRows, err = s.store.ListStaffAttendance(ctx, log.ID); err != nil {
			return nil, internalError(err, "failed to load staff attendance")
		}
	}
	studentAttendance := make(map[string]models.TutorLogStudentAttendance, len(studentRows))
	for _, row := range studentRows {
		studentAttendance[row.StudentID] = row
	}
	staffAttendance := make(map[string]models.TutorLogStaffAttendance, len(staffRows))
	for _, row := range staffRows {
		staffAttendance[row.StaffID] = row
	}

	result := &models.SessionReconciliation{
		Session:           *session,
		Title:             sessionTitle(session, class),
		DateLabel:         dates.FormatLong(session.StartAt.In(s.cfg.Location)),
		Logged:            logged,
		Students:          make([]models.ParticipantReconciliation, 0, len(students)),
		Staff:             make([]models.ParticipantReconciliation, 0, len(staff)),
		UnplannedStudents: []models.UnplannedAttendance{},
		UnplannedStaff:    []models.UnplannedAttendance{},
		Summary: models.ReconciliationSummary{
			Planned: map[models.PlannedStatus]int{},
			Actual:  map[models.ActualStatus]int{},
		},
		GeneratedAt: s.now().UTC(),
	}
	if logged {
		result.TutorLogID = &log.ID
	}

	plannedStudents := make(map[string]struct{}, len(students))
	for i := range students {
		row := &students[i]
		plannedStudents[row.StudentID] = struct{}{}
		var attendance *models.TutorLogStudentAttendance
		if a, ok := studentAttendance[row.StudentID]; ok {
			attendance = &a
		}
		rec, err := s.reconcileStudent(ctx, row, logged, attendance)
		if err != nil {
			return nil, internalError(err, "failed to resolve reschedule")
		}
		result.Students = append(result.Students, rec)
	}

	plannedStaff := make(map[string]struct{}, len(staff))
	for i := range staff {
		row := &staff[i]
		plannedStaff[row.StaffID] = struct{}{}
		var attendance *models.TutorLogStaffAttendance
		if a, ok := staffAttendance[row.StaffID]; ok {
			attendance = &a
		}
		rec, err := s.reconcileStaff(ctx, row, logged, attendance)
		if err != nil {
			return nil, internalError(err, "failed to resolve staff swap")
		}
		result.Staff = append(result.Staff, rec)
	}

	for _, row := range studentRows {
		if _, ok := plannedStudents[row.StudentID]; ok {
			continue
		}
		status := deriveActual(true, &row.Attended)
		result.UnplannedStudents = append(result.UnplannedStudents, models.UnplannedAttendance{
			Kind:         models.ParticipantStudent,
			PersonID:     row.StudentID,
			Name:         displayName(row.StudentName, row.StudentID),
			ActualStatus: status,
			ActualLabel:  status.Label(),
		})
	}
	for _, row := range staffRows {
		if _, ok := plannedStaff[row.StaffID]; ok {
			continue
		}
		status := deriveActual(true, &row.Attended)
		role := row.Type
		result.UnplannedStaff = append(result.UnplannedStaff, models.UnplannedAttendance{
			Kind:         models.ParticipantStaff,
			PersonID:     row.StaffID,
			Name:         displayName(row.StaffName, row.StaffID),
			ActualStatus: status,
			ActualRole:   &role,
			ActualLabel:  models.ActualDisplay(status, &role),
		})
	}

	for _, rec := range append(append([]models.ParticipantReconciliation{}, result.Students...), result.Staff...) {
		result.Summary.Planned[rec.PlannedStatus]++
		result.Summary.Actual[rec.ActualStatus]++
	}
	return result, nil
}

func (s *ReconciliationService) findClass(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.store.FindClass(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return class, err
}

func (s *ReconciliationService) reconcileStudent(ctx context.Context, row *models.SessionStudent, logged bool, attendance *models.TutorLogStudentAttendance) (models.ParticipantReconciliation, error) {
	redirect, ref, err := s.resolveReschedule(ctx, row)
	if err != nil {
		return models.ParticipantReconciliation{}, err
	}
	planned := deriveStudentPlanned(row, redirect)

	var attended *bool
	if attendance != nil {
		attended = &attendance.Attended
	}
	actual := deriveActual(logged, attended)

	rec := models.ParticipantReconciliation{
		ParticipantID: row.ID,
		Kind:          models.ParticipantStudent,
		PersonID:      row.StudentID,
		Name:          displayName(row.StudentName, row.StudentID),
		PlannedStatus: planned,
		PlannedLabel:  planned.Label(),
		Redirect:      redirect,
		ActualStatus:  actual,
		ActualLabel:   actual.Label(),
	}
	if planned == models.PlannedRescheduled {
		rec.PlannedCrossRef = ref
	}
	if redirect == models.RedirectUnresolved {
		rec.DanglingRef = row.RescheduledSessionStudentID
	}
	return rec, nil
}

func (s *ReconciliationService) reconcileStaff(ctx context.Context, row *models.SessionStaff, logged bool, attendance *models.TutorLogStaffAttendance) (models.ParticipantReconciliation, error) {
	redirect, ref, err := s.resolveSwap(ctx, row)
	if err != nil {
		return models.ParticipantReconciliation{}, err
	}
	planned := deriveStaffPlanned(row, redirect)

	var attended *bool
	var loggedRole *models.LoggedStaffRole
	if attendance != nil {
		attended = &attendance.Attended
		role := attendance.Type
		loggedRole = &role
	}
	actual := deriveActual(logged, attended)

	role := row.Type
	rec := models.ParticipantReconciliation{
		ParticipantID: row.ID,
		Kind:          models.ParticipantStaff,
		PersonID:      row.StaffID,
		Name:          displayName(row.StaffName, row.StaffID),
		Role:          &role,
		PlannedStatus: planned,
		PlannedLabel:  planned.Label(),
		Redirect:      redirect,
		ActualStatus:  actual,
		ActualRole:    loggedRole,
		ActualLabel:   models.ActualDisplay(actual, loggedRole),
	}
	if planned == models.PlannedSwapped {
		rec.PlannedCrossRef = ref
	}
	if redirect == models.RedirectUnresolved {
		rec.DanglingRef = row.SwappedSessionStaffID
	}
	return rec, nil
}

// resolveReschedule follows the makeup link of an absent, rescheduled student. The link only
// resolves when it reaches a row of the same student on a different, existing session.
func (s *ReconciliationService) resolveReschedule(ctx context.Context, row *models.SessionStudent) (models.RedirectState, *models.CrossReference, error) {
	if !row.PlannedAbsence || !row.IsRescheduled {
		return models.RedirectNone, nil, nil
	}
	if row.RescheduledSessionStudentID == nil || *row.RescheduledSessionStudentID == "" {
		return models.RedirectUnresolved, nil, nil
	}

	target, err := s.store.FindStudentParticipant(ctx, *row.RescheduledSessionStudentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RedirectUnresolved, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if target.StudentID != row.StudentID || target.SessionID == row.SessionID {
		return models.RedirectUnresolved, nil, nil
	}

	targetSession, err := s.store.FindSession(ctx, target.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RedirectUnresolved, nil, nil
	}
	if err != nil {
		return "", nil, err
	}

	var targetClass *models.Class
	if targetSession.ClassID != nil {
		if targetClass, err = s.findClass(ctx, *targetSession.ClassID); err != nil {
			return "", nil, err
		}
	}

	startLabel, endLabel := s.timeWindow(targetSession, targetClass)
	return models.RedirectResolved, &models.CrossReference{
		ParticipantID: target.ID,
		SessionID:     &targetSession.ID,
		SessionDate:   targetSession.SessionDate.Format(dates.DateLayout),
		StartTime:     startLabel,
		EndTime:       endLabel,
		Label:         fmt.Sprintf("%s %s - %s", dates.FormatShort(targetSession.StartAt.In(s.cfg.Location)), startLabel, endLabel),
	}, nil
}

// resolveSwap follows the replacement link of an absent staff member. The replacement must be a
// different staff member on the same session.
func (s *ReconciliationService) resolveSwap(ctx context.Context, row *models.SessionStaff) (models.RedirectState, *models.CrossReference, error) {
	if !row.PlannedAbsence || !row.IsSwapped {
		return models.RedirectNone, nil, nil
	}
	if row.SwappedSessionStaffID == nil || *row.SwappedSessionStaffID == "" {
		return models.RedirectUnresolved, nil, nil
	}

	target, err := s.store.FindStaffParticipant(ctx, *row.SwappedSessionStaffID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RedirectUnresolved, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if target.SessionID != row.SessionID || target.StaffID == row.StaffID {
		return models.RedirectUnresolved, nil, nil
	}

	name := displayName(target.StaffName, target.StaffID)
	return models.RedirectResolved, &models.CrossReference{
		ParticipantID: target.ID,
		StaffID:       &target.StaffID,
		StaffName:     name,
		Label:         name,
	}, nil
}

// timeWindow prefers the owning class's times and falls back to the session's own timestamps.
func (s *ReconciliationService) timeWindow(session *models.Session, class *models.Class) (string, string) {
	if class != nil {
		start, startErr := dates.ParseClock(class.StartTime)
		end, endErr := dates.ParseClock(class.EndTime)
		if startErr == nil && endErr == nil {
			return start.Short(), end.Short()
		}
	}
	return session.StartAt.In(s.cfg.Location).Format("15:04"), session.EndAt.In(s.cfg.Location).Format("15:04")
}

// derivePlanned applies the shared precedence: present, resolved redirect, credit, absent.
func derivePlanned(absent bool, redirect models.RedirectState, redirected models.PlannedStatus, credited bool) models.PlannedStatus {
	if !absent {
		return models.PlannedAttending
	}
	if redirect == models.RedirectResolved {
		return redirected
	}
	if credited {
		return models.PlannedCredited
	}
	return models.PlannedAbsent
}

func deriveStudentPlanned(row *models.SessionStudent, redirect models.RedirectState) models.PlannedStatus {
	return derivePlanned(row.PlannedAbsence, redirect, models.PlannedRescheduled, row.IsCredited)
}

// Staff have no credit equivalent.
func deriveStaffPlanned(row *models.SessionStaff, redirect models.RedirectState) models.PlannedStatus {
	return derivePlanned(row.PlannedAbsence, redirect, models.PlannedSwapped, false)
}

// deriveActual maps the tutor log state of one participant. A nil attended means the log holds no
// row for them.
func deriveActual(logged bool, attended *bool) models.ActualStatus {
	switch {
	case !logged:
		return models.ActualNotLogged
	case attended == nil:
		return models.ActualUnrecorded
	case *attended:
		return models.ActualAttended
	default:
		return models.ActualDidNotAttend
	}
}

func sessionTitle(session *models.Session, class *models.Class) string {
	if class != nil {
		var parts []string
		if class.SubjectName != nil && *class.SubjectName != "" {
			parts = append(parts, *class.SubjectName)
		}
		if class.Level != "" {
			parts = append(parts, class.Level)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	words := strings.Split(strings.ToLower(string(session.Type)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func displayName(name, id string) string {
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}
