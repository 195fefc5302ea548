package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type classRepoStub struct {
	classes   map[string]*models.Class
	createErr error
	statusSet []models.ClassStatus
}

func newClassRepoStub() *classRepoStub {
	return &classRepoStub{classes: map[string]*models.Class{}}
}

func (s *classRepoStub) List(_ context.Context, _ models.ClassFilter) ([]models.Class, int, error) {
	var out []models.Class
	for _, class := range s.classes {
		out = append(out, *class)
	}
	return out, len(out), nil
}

func (s *classRepoStub) FindByID(_ context.Context, id string) (*models.Class, error) {
	if class, ok := s.classes[id]; ok {
		clone := *class
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *classRepoStub) Create(_ context.Context, class *models.Class) error {
	if s.createErr != nil {
		return s.createErr
	}
	class.ID = "class-new"
	clone := *class
	s.classes[class.ID] = &clone
	return nil
}

func (s *classRepoStub) Update(_ context.Context, class *models.Class) error {
	clone := *class
	s.classes[class.ID] = &clone
	return nil
}

func (s *classRepoStub) UpdateStatus(_ context.Context, id string, status models.ClassStatus) error {
	s.statusSet = append(s.statusSet, status)
	s.classes[id].Status = status
	return nil
}

type enrollmentRepoStub struct {
	students []models.ClassStudent
	staff    []models.ClassStaff
	ended    map[string]time.Time
}

func newEnrollmentRepoStub() *enrollmentRepoStub {
	return &enrollmentRepoStub{ended: map[string]time.Time{}}
}

func (s *enrollmentRepoStub) ListStudents(_ context.Context, _ string) ([]models.ClassStudent, error) {
	return s.students, nil
}

func (s *enrollmentRepoStub) ListStaff(_ context.Context, _ string) ([]models.ClassStaff, error) {
	return s.staff, nil
}

func (s *enrollmentRepoStub) HasActiveStudent(_ context.Context, classID, studentID string) (bool, error) {
	for _, row := range s.students {
		if row.ClassID == classID && row.StudentID == studentID && row.EndDate == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *enrollmentRepoStub) HasActiveStaff(_ context.Context, classID, staffID string) (bool, error) {
	for _, row := range s.staff {
		if row.ClassID == classID && row.StaffID == staffID && row.EndDate == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *enrollmentRepoStub) CreateStudent(_ context.Context, enrollment *models.ClassStudent) error {
	s.students = append(s.students, *enrollment)
	return nil
}

func (s *enrollmentRepoStub) CreateStaff(_ context.Context, assignment *models.ClassStaff) error {
	s.staff = append(s.staff, *assignment)
	return nil
}

func (s *enrollmentRepoStub) EndStudent(_ context.Context, classID, studentID string, endDate time.Time) (bool, error) {
	for i := range s.students {
		row := &s.students[i]
		if row.ClassID == classID && row.StudentID == studentID && row.EndDate == nil {
			row.EndDate = &endDate
			s.ended[studentID] = endDate
			return true, nil
		}
	}
	return false, nil
}

func (s *enrollmentRepoStub) EndStaff(_ context.Context, classID, staffID string, endDate time.Time) (bool, error) {
	for i := range s.staff {
		row := &s.staff[i]
		if row.ClassID == classID && row.StaffID == staffID && row.EndDate == nil {
			row.EndDate = &endDate
			s.ended[staffID] = endDate
			return true, nil
		}
	}
	return false, nil
}

func intPtr(v int) *int { return &v }

func newClassFixture() (*ClassService, *classRepoStub, *enrollmentRepoStub) {
	repo := newClassRepoStub()
	class := mondayClass("class-1")
	repo.classes["class-1"] = &class
	enrollments := newEnrollmentRepoStub()
	svc := NewClassService(repo, enrollments, nil, time.UTC, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 10, 16, 9, 0, 0, 0, time.UTC) }
	return svc, repo, enrollments
}

func TestClassServiceCreate(t *testing.T) {
	svc, repo, _ := newClassFixture()
	ctx := context.Background()

	class, err := svc.Create(ctx, dto.CreateClassRequest{Level: " 11CHEM C1 ", DayOfWeek: intPtr(3), StartTime: "16:00", EndTime: "17:30"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "11CHEM C1", class.Level)
	assert.Equal(t, "16:00:00", class.StartTime)
	assert.Equal(t, "17:30:00", class.EndTime)
	assert.Equal(t, models.ClassStatusActive, class.Status)
	assert.Contains(t, repo.classes, "class-new")

	_, err = svc.Create(ctx, dto.CreateClassRequest{Level: "x", DayOfWeek: intPtr(3), StartTime: "17:30", EndTime: "16:00"}, "admin-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, dto.CreateClassRequest{Level: "x", DayOfWeek: intPtr(3), StartTime: "4pm", EndTime: "17:00"}, "admin-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, dto.CreateClassRequest{Level: "x", DayOfWeek: intPtr(7), StartTime: "16:00", EndTime: "17:00"}, "admin-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, dto.CreateClassRequest{Level: "x", StartTime: "16:00", EndTime: "17:00"}, "admin-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	repo.createErr = &pq.Error{Code: "23514"}
	_, err = svc.Create(ctx, dto.CreateClassRequest{Level: "x", DayOfWeek: intPtr(0), StartTime: "16:00", EndTime: "17:00"}, "admin-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestClassServiceUpdateAndStatus(t *testing.T) {
	svc, repo, _ := newClassFixture()
	spy := &invalidatorSpy{}
	svc.invalidator = spy
	ctx := context.Background()

	updated, err := svc.Update(ctx, "class-1", dto.UpdateClassRequest{Level: "10MATH C3", DayOfWeek: intPtr(2), StartTime: "15:00", EndTime: "16:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.DayOfWeek)
	assert.Equal(t, "15:00:00", repo.classes["class-1"].StartTime)
	assert.Equal(t, 1, spy.all)

	_, err = svc.Update(ctx, "missing", dto.UpdateClassRequest{Level: "x", DayOfWeek: intPtr(2), StartTime: "15:00", EndTime: "16:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 1, spy.all)

	class, err := svc.SetStatus(ctx, "class-1", dto.UpdateClassStatusRequest{Status: models.ClassStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusInactive, class.Status)

	_, err = svc.SetStatus(ctx, "class-1", dto.UpdateClassStatusRequest{Status: models.ClassStatusInactive})
	require.NoError(t, err)
	assert.Len(t, repo.statusSet, 1)

	_, err = svc.SetStatus(ctx, "class-1", dto.UpdateClassStatusRequest{Status: "DELETED"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestClassServiceEnrollment(t *testing.T) {
	svc, _, enrollments := newClassFixture()
	ctx := context.Background()

	enrollment, err := svc.EnrollStudent(ctx, "class-1", dto.EnrollStudentRequest{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 10, 16), enrollment.StartDate)

	_, err = svc.EnrollStudent(ctx, "class-1", dto.EnrollStudentRequest{StudentID: "stu-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = svc.EnrollStudent(ctx, "class-1", dto.EnrollStudentRequest{StudentID: "stu-2", StartDate: "16/10/2024"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.EnrollStudent(ctx, "missing", dto.EnrollStudentRequest{StudentID: "stu-2"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.UnenrollStudent(ctx, "class-1", "stu-1"))
	assert.Equal(t, date(2024, 10, 16), enrollments.ended["stu-1"])
	assert.True(t, appErrors.Is(svc.UnenrollStudent(ctx, "class-1", "stu-1"), appErrors.ErrNotFound))

	again, err := svc.EnrollStudent(ctx, "class-1", dto.EnrollStudentRequest{StudentID: "stu-1", StartDate: "2024-11-01"})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 11, 1), again.StartDate)
}

func TestClassServiceStaffAssignment(t *testing.T) {
	svc, _, enrollments := newClassFixture()
	ctx := context.Background()

	assignment, err := svc.AssignStaff(ctx, "class-1", dto.AssignStaffRequest{StaffID: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StaffRoleMainTutor, assignment.Type)

	_, err = svc.AssignStaff(ctx, "class-1", dto.AssignStaffRequest{StaffID: "staff-1", Type: models.StaffRoleSecondaryTutor})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	listed, err := svc.ListEnrollments(ctx, "class-1")
	require.NoError(t, err)
	assert.Empty(t, listed.Students)
	assert.Len(t, listed.Staff, 1)

	require.NoError(t, svc.UnassignStaff(ctx, "class-1", "staff-1"))
	assert.Contains(t, enrollments.ended, "staff-1")
	assert.True(t, appErrors.Is(svc.UnassignStaff(ctx, "class-1", "staff-1"), appErrors.ErrNotFound))
}
