package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/models"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type reconciliationStoreStub struct {
	sessions          map[string]*models.Session
	classes           map[string]*models.Class
	students          map[string][]models.SessionStudent
	staff             map[string][]models.SessionStaff
	tutorLogs         map[string]*models.TutorLog
	studentAttendance map[string][]models.TutorLogStudentAttendance
	staffAttendance   map[string][]models.TutorLogStaffAttendance
	participantErr    error
	sessionLoads      int
}

func newReconciliationStoreStub() *reconciliationStoreStub {
	return &reconciliationStoreStub{
		sessions:          map[string]*models.Session{},
		classes:           map[string]*models.Class{},
		students:          map[string][]models.SessionStudent{},
		staff:             map[string][]models.SessionStaff{},
		tutorLogs:         map[string]*models.TutorLog{},
		studentAttendance: map[string][]models.TutorLogStudentAttendance{},
		staffAttendance:   map[string][]models.TutorLogStaffAttendance{},
	}
}

func (s *reconciliationStoreStub) FindSession(_ context.Context, id string) (*models.Session, error) {
	s.sessionLoads++
	if session, ok := s.sessions[id]; ok {
		clone := *session
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reconciliationStoreStub) FindClass(_ context.Context, id string) (*models.Class, error) {
	if class, ok := s.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reconciliationStoreStub) ListStudents(_ context.Context, sessionID string) ([]models.SessionStudent, error) {
	return s.students[sessionID], nil
}

func (s *reconciliationStoreStub) ListStaff(_ context.Context, sessionID string) ([]models.SessionStaff, error) {
	return s.staff[sessionID], nil
}

func (s *reconciliationStoreStub) FindStudentParticipant(_ context.Context, id string) (*models.SessionStudent, error) {
	if s.participantErr != nil {
		return nil, s.participantErr
	}
	for _, rows := range s.students {
		for i := range rows {
			if rows[i].ID == id {
				return &rows[i], nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (s *reconciliationStoreStub) FindStaffParticipant(_ context.Context, id string) (*models.SessionStaff, error) {
	if s.participantErr != nil {
		return nil, s.participantErr
	}
	for _, rows := range s.staff {
		for i := range rows {
			if rows[i].ID == id {
				return &rows[i], nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (s *reconciliationStoreStub) FindTutorLog(_ context.Context, sessionID string) (*models.TutorLog, error) {
	if log, ok := s.tutorLogs[sessionID]; ok {
		return log, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reconciliationStoreStub) ListStudentAttendance(_ context.Context, tutorLogID string) ([]models.TutorLogStudentAttendance, error) {
	return s.studentAttendance[tutorLogID], nil
}

func (s *reconciliationStoreStub) ListStaffAttendance(_ context.Context, tutorLogID string) ([]models.TutorLogStaffAttendance, error) {
	return s.staffAttendance[tutorLogID], nil
}

func strPtr(v string) *string { return &v }

// seedMondayClass stores class-1 (Monday 16:00-17:30) with sessions on 7 and 14 October 2024.
func seedMondayClass(store *reconciliationStoreStub) {
	subject := "Maths Methods"
	store.classes["class-1"] = &models.Class{ID: "class-1", SubjectName: &subject, Level: "10MATH C2", DayOfWeek: 1, StartTime: "16:00:00", EndTime: "17:30:00", Status: models.ClassStatusActive}
	for id, day := range map[string]int{"sess-x": 7, "sess-z": 14} {
		date := time.Date(2024, 10, day, 0, 0, 0, 0, time.UTC)
		store.sessions[id] = &models.Session{
			ID:          id,
			ClassID:     strPtr("class-1"),
			Type:        models.SessionTypeClass,
			SessionDate: date,
			StartAt:     date.Add(16 * time.Hour),
			EndAt:       date.Add(17*time.Hour + 30*time.Minute),
		}
	}
}

func newTestReconciliationService(store reconciliationStore, cache *CacheService) *ReconciliationService {
	svc := NewReconciliationService(store, cache, nil, ReconciliationConfig{Location: time.UTC}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 10, 20, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestReconciliationSessionNotFound(t *testing.T) {
	svc := newTestReconciliationService(newReconciliationStoreStub(), nil)

	_, _, err := svc.GetSessionReconciliation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestReconciliationResolvedReschedule(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{{ID: "ss-x1", SessionID: "sess-x", StudentID: "stu-1", StudentName: "Ava Brown", PlannedAbsence: true, IsRescheduled: true, RescheduledSessionStudentID: strPtr("ss-z1")}}
	store.students["sess-z"] = []models.SessionStudent{{ID: "ss-z1", SessionID: "sess-z", StudentID: "stu-1", StudentName: "Ava Brown"}}
	svc := newTestReconciliationService(store, nil)

	result, hit, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, result.Students, 1)
	student := result.Students[0]
	assert.Equal(t, models.PlannedRescheduled, student.PlannedStatus)
	assert.Equal(t, models.RedirectResolved, student.Redirect)
	require.NotNil(t, student.PlannedCrossRef)
	assert.Equal(t, "sess-z", *student.PlannedCrossRef.SessionID)
	assert.Equal(t, "2024-10-14", student.PlannedCrossRef.SessionDate)
	assert.Equal(t, "Mon 14/10 16:00 - 17:30", student.PlannedCrossRef.Label)
	assert.Equal(t, models.ActualNotLogged, student.ActualStatus)
	assert.Equal(t, "Maths Methods 10MATH C2", result.Title)
	assert.Equal(t, "Monday 07/10/2024", result.DateLabel)

	makeup, _, err := svc.GetSessionReconciliation(context.Background(), "sess-z")
	require.NoError(t, err)
	assert.Equal(t, models.PlannedAttending, makeup.Students[0].PlannedStatus)
}

func TestReconciliationPresentIgnoresRedirectFlags(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1", IsRescheduled: true, IsCredited: true, RescheduledSessionStudentID: strPtr("ss-missing")}}
	store.staff["sess-x"] = []models.SessionStaff{{ID: "sf-1", SessionID: "sess-x", StaffID: "staff-1", Type: models.StaffRoleMainTutor, IsSwapped: true}}
	svc := newTestReconciliationService(store, nil)

	result, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.Equal(t, models.PlannedAttending, result.Students[0].PlannedStatus)
	assert.Equal(t, models.RedirectNone, result.Students[0].Redirect)
	assert.Nil(t, result.Students[0].DanglingRef)
	assert.Equal(t, models.PlannedAttending, result.Staff[0].PlannedStatus)
}

func TestReconciliationDanglingRescheduleFallsBack(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{
		{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1", PlannedAbsence: true, IsRescheduled: true, IsCredited: true, RescheduledSessionStudentID: strPtr("gone")},
		{ID: "ss-2", SessionID: "sess-x", StudentID: "stu-2", PlannedAbsence: true, IsRescheduled: true, RescheduledSessionStudentID: strPtr("ss-other")},
		{ID: "ss-3", SessionID: "sess-x", StudentID: "stu-3", PlannedAbsence: true, IsCredited: true},
	}
	// ss-other belongs to a different student, so the link cannot resolve.
	store.students["sess-z"] = []models.SessionStudent{{ID: "ss-other", SessionID: "sess-z", StudentID: "stu-9"}}
	svc := newTestReconciliationService(store, nil)

	result, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	require.Len(t, result.Students, 3)

	assert.Equal(t, models.PlannedCredited, result.Students[0].PlannedStatus)
	assert.Equal(t, models.RedirectUnresolved, result.Students[0].Redirect)
	require.NotNil(t, result.Students[0].DanglingRef)
	assert.Equal(t, "gone", *result.Students[0].DanglingRef)
	assert.Nil(t, result.Students[0].PlannedCrossRef)

	assert.Equal(t, models.PlannedAbsent, result.Students[1].PlannedStatus)
	assert.Equal(t, models.RedirectUnresolved, result.Students[1].Redirect)

	assert.Equal(t, models.PlannedCredited, result.Students[2].PlannedStatus)
	assert.Equal(t, models.RedirectNone, result.Students[2].Redirect)
}

func TestReconciliationRescheduleToSameSessionIsUnresolved(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{
		{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1", PlannedAbsence: true, IsRescheduled: true, RescheduledSessionStudentID: strPtr("ss-1")},
	}
	svc := newTestReconciliationService(store, nil)

	result, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.Equal(t, models.PlannedAbsent, result.Students[0].PlannedStatus)
	assert.Equal(t, models.RedirectUnresolved, result.Students[0].Redirect)
}

func TestReconciliationNotLoggedDominates(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{
		{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1"},
		{ID: "ss-2", SessionID: "sess-x", StudentID: "stu-2", PlannedAbsence: true},
	}
	store.staff["sess-x"] = []models.SessionStaff{{ID: "sf-1", SessionID: "sess-x", StaffID: "staff-1", Type: models.StaffRoleMainTutor}}
	svc := newTestReconciliationService(store, nil)

	result, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.False(t, result.Logged)
	for _, rec := range append(result.Students, result.Staff...) {
		assert.Equal(t, models.ActualNotLogged, rec.ActualStatus, rec.PersonID)
	}
	assert.Equal(t, 3, result.Summary.Actual[models.ActualNotLogged])
	assert.Equal(t, 2, result.Summary.Planned[models.PlannedAttending])
	assert.Equal(t, 1, result.Summary.Planned[models.PlannedAbsent])
}

func TestReconciliationActualFromTutorLog(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{
		{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1"},
		{ID: "ss-2", SessionID: "sess-x", StudentID: "stu-2"},
		{ID: "ss-3", SessionID: "sess-x", StudentID: "stu-3", PlannedAbsence: true},
	}
	store.staff["sess-x"] = []models.SessionStaff{{ID: "sf-1", SessionID: "sess-x", StaffID: "staff-1", Type: models.StaffRoleMainTutor}}
	store.tutorLogs["sess-x"] = &models.TutorLog{ID: "log-1", SessionID: "sess-x"}
	store.studentAttendance["log-1"] = []models.TutorLogStudentAttendance{
		{StudentID: "stu-1", Attended: false},
		{StudentID: "stu-3", Attended: true},
		{StudentID: "stu-walkin", StudentName: "Walk In", Attended: true},
	}
	store.staffAttendance["log-1"] = []models.TutorLogStaffAttendance{
		{StaffID: "staff-1", Attended: true, Type: models.LoggedRolePrimary},
		{StaffID: "staff-2", StaffName: "Sam Lee", Attended: true, Type: models.LoggedRoleAssistant},
	}
	svc := newTestReconciliationService(store, nil)

	result, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	require.True(t, result.Logged)
	require.NotNil(t, result.TutorLogID)

	assert.Equal(t, models.PlannedAttending, result.Students[0].PlannedStatus)
	assert.Equal(t, models.ActualDidNotAttend, result.Students[0].ActualStatus)
	assert.Equal(t, models.ActualUnrecorded, result.Students[1].ActualStatus)
	assert.Equal(t, models.PlannedAbsent, result.Students[2].PlannedStatus)
	assert.Equal(t, models.ActualAttended, result.Students[2].ActualStatus)

	staff := result.Staff[0]
	assert.Equal(t, models.ActualAttended, staff.ActualStatus)
	require.NotNil(t, staff.ActualRole)
	assert.Equal(t, models.LoggedRolePrimary, *staff.ActualRole)
	assert.Equal(t, "Attended (PRIMARY)", staff.ActualLabel)

	require.Len(t, result.UnplannedStudents, 1)
	assert.Equal(t, "Walk In", result.UnplannedStudents[0].Name)
	require.Len(t, result.UnplannedStaff, 1)
	assert.Equal(t, "Attended (ASSISTANT)", result.UnplannedStaff[0].ActualLabel)
}

func TestReconciliationStaffSwap(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.staff["sess-x"] = []models.SessionStaff{
		{ID: "sf-1", SessionID: "sess-x", StaffID: "staff-1", StaffName: "Tom Tutor", Type: models.StaffRoleMainTutor, PlannedAbsence: true, IsSwapped: true, SwappedSessionStaffID: strPtr("sf-2")},
		{ID: "sf-2", SessionID: "sess-x", StaffID: "staff-2", StaffName: "Rita Relief", Type: models.StaffRoleMainTutor},
		{ID: "sf-3", SessionID: "sess-x", StaffID: "staff-3", Type: models.StaffRoleSecondaryTutor, PlannedAbsence: true, IsSwapped: true, SwappedSessionStaffID: strPtr("sf-elsewhere")},
	}
	store.staff["sess-z"] = []models.SessionStaff{{ID: "sf-elsewhere", SessionID: "sess-z", StaffID: "staff-4"}}
	svc := newTestReconciliationService(store, nil)

	result, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	require.Len(t, result.Staff, 3)

	swapped := result.Staff[0]
	assert.Equal(t, models.PlannedSwapped, swapped.PlannedStatus)
	require.NotNil(t, swapped.PlannedCrossRef)
	assert.Equal(t, "Rita Relief", swapped.PlannedCrossRef.Label)
	assert.Equal(t, "staff-2", *swapped.PlannedCrossRef.StaffID)

	assert.Equal(t, models.PlannedAttending, result.Staff[1].PlannedStatus)

	assert.Equal(t, models.PlannedAbsent, result.Staff[2].PlannedStatus)
	assert.Equal(t, models.RedirectUnresolved, result.Staff[2].Redirect)
	assert.Equal(t, "sf-elsewhere", *result.Staff[2].DanglingRef)
}

func TestReconciliationPropagatesStoreErrors(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1", PlannedAbsence: true, IsRescheduled: true, RescheduledSessionStudentID: strPtr("ss-2")}}
	store.participantErr = assert.AnError
	svc := newTestReconciliationService(store, nil)

	_, _, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReconciliationUsesCache(t *testing.T) {
	store := newReconciliationStoreStub()
	seedMondayClass(store)
	store.students["sess-x"] = []models.SessionStudent{{ID: "ss-1", SessionID: "sess-x", StudentID: "stu-1"}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, zap.NewNop(), true)
	svc := newTestReconciliationService(store, cache)

	_, hit, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.False(t, hit)
	loads := store.sessionLoads

	cached, hit, err := svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, loads, store.sessionLoads)
	assert.Equal(t, models.PlannedAttending, cached.Students[0].PlannedStatus)
	assert.Equal(t, 1, cached.Summary.Planned[models.PlannedAttending])

	svc.Invalidate(context.Background(), "sess-x")
	_, hit, err = svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.False(t, hit)

	svc.InvalidateAll(context.Background())
	_, hit, err = svc.GetSessionReconciliation(context.Background(), "sess-x")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDerivePlannedPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		absent   bool
		redirect models.RedirectState
		credited bool
		want     models.PlannedStatus
	}{
		{"present wins", false, models.RedirectResolved, true, models.PlannedAttending},
		{"resolved redirect beats credit", true, models.RedirectResolved, true, models.PlannedRescheduled},
		{"unresolved falls to credit", true, models.RedirectUnresolved, true, models.PlannedCredited},
		{"plain absence", true, models.RedirectNone, false, models.PlannedAbsent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, derivePlanned(tc.absent, tc.redirect, models.PlannedRescheduled, tc.credited))
		})
	}
}

func TestDeriveActual(t *testing.T) {
	yes, no := true, false
	assert.Equal(t, models.ActualNotLogged, deriveActual(false, &yes))
	assert.Equal(t, models.ActualUnrecorded, deriveActual(true, nil))
	assert.Equal(t, models.ActualAttended, deriveActual(true, &yes))
	assert.Equal(t, models.ActualDidNotAttend, deriveActual(true, &no))
}
