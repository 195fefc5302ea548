package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/response"
)

type rosterService interface {
	AddStudent(ctx context.Context, sessionID string, req dto.AddSessionStudentRequest, actorID string) (*models.SessionStudent, error)
	RemoveStudent(ctx context.Context, sessionID, studentID string) error
	AddStaff(ctx context.Context, sessionID string, req dto.AddSessionStaffRequest, actorID string) (*models.SessionStaff, error)
	RemoveStaff(ctx context.Context, sessionID, staffID string) error
	UpdateStudentPlan(ctx context.Context, participantID string, req dto.UpdateStudentPlanRequest, actorID string) (*models.SessionStudent, error)
	UpdateStaffPlan(ctx context.Context, participantID string, req dto.UpdateStaffPlanRequest, actorID string) (*models.SessionStaff, error)
}

// RosterHandler exposes planned roster endpoints.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs a roster handler.
func NewRosterHandler(svc rosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// AddStudent godoc
// @Summary Add a student to a session roster
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AddSessionStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/students [post]
func (h *RosterHandler) AddStudent(c *gin.Context) {
	var req dto.AddSessionStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.service.AddStudent(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// RemoveStudent godoc
// @Summary Remove a student from a session roster
// @Tags Roster
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /sessions/{id}/students/{studentId} [delete]
func (h *RosterHandler) RemoveStudent(c *gin.Context) {
	if err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddStaff godoc
// @Summary Add a staff member to a session roster
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AddSessionStaffRequest true "Staff member"
// @Success 201 {object} response.Envelope
// @Router /sessions/{id}/staff [post]
func (h *RosterHandler) AddStaff(c *gin.Context) {
	var req dto.AddSessionStaffRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.service.AddStaff(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// RemoveStaff godoc
// @Summary Remove a staff member from a session roster
// @Tags Roster
// @Param id path string true "Session ID"
// @Param staffId path string true "Staff ID"
// @Success 204
// @Router /sessions/{id}/staff/{staffId} [delete]
func (h *RosterHandler) RemoveStaff(c *gin.Context) {
	if err := h.service.RemoveStaff(c.Request.Context(), c.Param("id"), c.Param("staffId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStudentPlan godoc
// @Summary Set planned absence, reschedule or credit for a student
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Session student ID"
// @Param payload body dto.UpdateStudentPlanRequest true "Plan"
// @Success 200 {object} response.Envelope
// @Router /session-students/{id}/plan [patch]
func (h *RosterHandler) UpdateStudentPlan(c *gin.Context) {
	var req dto.UpdateStudentPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.service.UpdateStudentPlan(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// UpdateStaffPlan godoc
// @Summary Set planned absence and replacement for a staff member
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Session staff ID"
// @Param payload body dto.UpdateStaffPlanRequest true "Plan"
// @Success 200 {object} response.Envelope
// @Router /session-staff/{id}/plan [patch]
func (h *RosterHandler) UpdateStaffPlan(c *gin.Context) {
	var req dto.UpdateStaffPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.service.UpdateStaffPlan(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}
