package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/middleware"
	"github.com/altitutor/admin-api/internal/models"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

type classServiceMock struct {
	lastFilter models.ClassFilter
	unenrolled []string
}

func newClassServiceMock() *classServiceMock {
	return &classServiceMock{}
}

func (m *classServiceMock) List(_ context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Class{{ID: "class-1", Level: "Year 12"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *classServiceMock) Get(_ context.Context, id string) (*models.Class, error) {
	return &models.Class{ID: id}, nil
}

func (m *classServiceMock) Create(_ context.Context, req dto.CreateClassRequest, _ string) (*models.Class, error) {
	return &models.Class{ID: "class-new", Level: req.Level}, nil
}

func (m *classServiceMock) Update(_ context.Context, id string, req dto.UpdateClassRequest) (*models.Class, error) {
	return &models.Class{ID: id, Level: req.Level}, nil
}

func (m *classServiceMock) SetStatus(_ context.Context, id string, req dto.UpdateClassStatusRequest) (*models.Class, error) {
	return &models.Class{ID: id, Status: req.Status}, nil
}

func (m *classServiceMock) ListEnrollments(_ context.Context, classID string) (*dto.ClassEnrollments, error) {
	return &dto.ClassEnrollments{
		Students: []models.ClassStudent{{ID: "cs-1", ClassID: classID, StudentID: "stu-1"}},
		Staff:    []models.ClassStaff{},
	}, nil
}

func (m *classServiceMock) EnrollStudent(_ context.Context, classID string, req dto.EnrollStudentRequest) (*models.ClassStudent, error) {
	if req.StudentID == "stu-1" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled")
	}
	return &models.ClassStudent{ID: "cs-2", ClassID: classID, StudentID: req.StudentID}, nil
}

func (m *classServiceMock) UnenrollStudent(_ context.Context, _ string, studentID string) error {
	m.unenrolled = append(m.unenrolled, studentID)
	return nil
}

func (m *classServiceMock) AssignStaff(_ context.Context, classID string, req dto.AssignStaffRequest) (*models.ClassStaff, error) {
	return &models.ClassStaff{ID: "cf-1", ClassID: classID, StaffID: req.StaffID, Type: models.StaffRoleMainTutor}, nil
}

func (m *classServiceMock) UnassignStaff(context.Context, string, string) error {
	return appErrors.Clone(appErrors.ErrNotFound, "staff member not assigned")
}

func newClassRouter(svc *classServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdminStaff})
		c.Next()
	})
	RegisterRoutes(router.Group(""), Handlers{Classes: NewClassHandler(svc)}, nil)
	return router
}

func TestClassHandlerListFilters(t *testing.T) {
	svc := newClassServiceMock()
	router := newClassRouter(svc)

	resp := performRequest(router, jsonRequest(http.MethodGet, "/classes?status=active&day_of_week=1&search=%20maths%20", "", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total_count":1`)
	assert.Equal(t, models.ClassStatusActive, svc.lastFilter.Status)
	require.NotNil(t, svc.lastFilter.DayOfWeek)
	assert.Equal(t, 1, *svc.lastFilter.DayOfWeek)
	assert.Equal(t, "maths", svc.lastFilter.Search)

	resp = performRequest(router, jsonRequest(http.MethodGet, "/classes?day_of_week=9", "", ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestClassHandlerEnrollments(t *testing.T) {
	svc := newClassServiceMock()
	router := newClassRouter(svc)

	resp := performRequest(router, jsonRequest(http.MethodGet, "/classes/class-1/students", "", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"student_id":"stu-1"`)

	resp = performRequest(router, jsonRequest(http.MethodGet, "/classes/class-1/staff", "", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"data":[]`)

	resp = performRequest(router, jsonRequest(http.MethodPost, "/classes/class-1/students", `{"student_id":"stu-1"}`, ""))
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = performRequest(router, jsonRequest(http.MethodPost, "/classes/class-1/students", `{"student_id":"stu-2"}`, ""))
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = performRequest(router, jsonRequest(http.MethodDelete, "/classes/class-1/students/stu-2", "", ""))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{"stu-2"}, svc.unenrolled)

	resp = performRequest(router, jsonRequest(http.MethodDelete, "/classes/class-1/staff/staff-1", "", ""))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestClassHandlerSetStatusInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewClassHandler(newClassServiceMock())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPatch, "/classes/class-1/status", `invalid`, "")
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.SetStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
