package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/response"
)

type tutorLogService interface {
	Create(ctx context.Context, req dto.CreateTutorLogRequest, actorID string) (*models.TutorLogDetail, error)
	GetBySession(ctx context.Context, sessionID string) (*models.TutorLogDetail, error)
	ListUnlogged(ctx context.Context, staffID string) ([]models.Session, error)
}

// TutorLogHandler exposes tutor log endpoints.
type TutorLogHandler struct {
	service tutorLogService
}

// NewTutorLogHandler constructs a tutor log handler.
func NewTutorLogHandler(svc tutorLogService) *TutorLogHandler {
	return &TutorLogHandler{service: svc}
}

// Create godoc
// @Summary File the tutor log of a session
// @Tags TutorLogs
// @Accept json
// @Produce json
// @Param payload body dto.CreateTutorLogRequest true "Tutor log"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tutor-logs [post]
func (h *TutorLogHandler) Create(c *gin.Context) {
	var req dto.CreateTutorLogRequest
	if !bindJSON(c, &req) {
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// GetBySession godoc
// @Summary Get the tutor log of a session
// @Tags TutorLogs
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/tutor-log [get]
func (h *TutorLogHandler) GetBySession(c *gin.Context) {
	detail, err := h.service.GetBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListUnlogged godoc
// @Summary Sessions a staff member still has to log
// @Tags TutorLogs
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/unlogged-sessions [get]
func (h *TutorLogHandler) ListUnlogged(c *gin.Context) {
	sessions, err := h.service.ListUnlogged(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}
