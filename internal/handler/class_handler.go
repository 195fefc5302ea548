package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
	"github.com/altitutor/admin-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, req dto.CreateClassRequest, actorID string) (*models.Class, error)
	Update(ctx context.Context, id string, req dto.UpdateClassRequest) (*models.Class, error)
	SetStatus(ctx context.Context, id string, req dto.UpdateClassStatusRequest) (*models.Class, error)
	ListEnrollments(ctx context.Context, classID string) (*dto.ClassEnrollments, error)
	EnrollStudent(ctx context.Context, classID string, req dto.EnrollStudentRequest) (*models.ClassStudent, error)
	UnenrollStudent(ctx context.Context, classID, studentID string) error
	AssignStaff(ctx context.Context, classID string, req dto.AssignStaffRequest) (*models.ClassStaff, error)
	UnassignStaff(ctx context.Context, classID, staffID string) error
}

// ClassHandler exposes class templates and their enrollments.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param status query string false "ACTIVE, INACTIVE or FULL"
// @Param day_of_week query int false "0 (Sunday) to 6 (Saturday)"
// @Param subject_id query string false "Subject ID"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.Status = models.ClassStatus(strings.ToUpper(c.Query("status")))
	if raw := c.Query("day_of_week"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil || day < 0 || day > 6 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 and 6"))
			return
		}
		filter.DayOfWeek = &day
	}
	filter.SubjectID = c.Query("subject_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	classes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if classes == nil {
		classes = []models.Class{}
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req dto.CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req dto.UpdateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// SetStatus godoc
// @Summary Activate or deactivate a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateClassStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/status [patch]
func (h *ClassHandler) SetStatus(c *gin.Context) {
	var req dto.UpdateClassStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// ListStudents godoc
// @Summary List class enrollments
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *ClassHandler) ListStudents(c *gin.Context) {
	enrollments, err := h.service.ListEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments.Students, nil)
}

// ListStaff godoc
// @Summary List class staff assignments
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/staff [get]
func (h *ClassHandler) ListStaff(c *gin.Context) {
	enrollments, err := h.service.ListEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments.Staff, nil)
}

// EnrollStudent godoc
// @Summary Enroll a student into a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.EnrollStudentRequest true "Enrollment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/students [post]
func (h *ClassHandler) EnrollStudent(c *gin.Context) {
	var req dto.EnrollStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.service.EnrollStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// UnenrollStudent godoc
// @Summary End a student's enrollment today
// @Tags Classes
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /classes/{id}/students/{studentId} [delete]
func (h *ClassHandler) UnenrollStudent(c *gin.Context) {
	if err := h.service.UnenrollStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignStaff godoc
// @Summary Assign a staff member to a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AssignStaffRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/staff [post]
func (h *ClassHandler) AssignStaff(c *gin.Context) {
	var req dto.AssignStaffRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.service.AssignStaff(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// UnassignStaff godoc
// @Summary End a staff assignment today
// @Tags Classes
// @Param id path string true "Class ID"
// @Param staffId path string true "Staff ID"
// @Success 204
// @Router /classes/{id}/staff/{staffId} [delete]
func (h *ClassHandler) UnassignStaff(c *gin.Context) {
	if err := h.service.UnassignStaff(c.Request.Context(), c.Param("id"), c.Param("staffId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
