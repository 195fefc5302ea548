package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/middleware"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/dates"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
	"github.com/altitutor/admin-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.SessionDetail, error)
	Create(ctx context.Context, req dto.CreateSessionRequest, actorID string) (*models.Session, error)
	Update(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type precreateService interface {
	PrecreateSessions(ctx context.Context, req dto.PrecreateSessionsRequest, actorID string) (*dto.PrecreateSessionsResult, error)
}

type reconciliationService interface {
	GetSessionReconciliation(ctx context.Context, sessionID string) (*models.SessionReconciliation, bool, error)
}

type exportService interface {
	ExportReconciliation(ctx context.Context, sessionID string, format dto.ExportFormat) (*dto.ExportFile, error)
}

// SessionHandler exposes session CRUD, materialization and reconciliation endpoints.
type SessionHandler struct {
	sessions       sessionService
	materializer   precreateService
	reconciliation reconciliationService
	exports        exportService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions sessionService, materializer precreateService, reconciliation reconciliationService, exports exportService) *SessionHandler {
	return &SessionHandler{sessions: sessions, materializer: materializer, reconciliation: reconciliation, exports: exports}
}

// Precreate godoc
// @Summary Materialize class sessions over a date range
// @Description Creates one session per active class per matching weekday. Existing sessions are skipped.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.PrecreateSessionsRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions/precreate [post]
func (h *SessionHandler) Precreate(c *gin.Context) {
	var req dto.PrecreateSessionsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.materializer.PrecreateSessions(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reconciliation godoc
// @Summary Planned versus actual attendance for a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/reconciliation [get]
func (h *SessionHandler) Reconciliation(c *gin.Context) {
	result, hit, err := h.reconciliation.GetSessionReconciliation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ExportReconciliation godoc
// @Summary Download the reconciliation sheet
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /sessions/{id}/reconciliation/export [get]
func (h *SessionHandler) ExportReconciliation(c *gin.Context) {
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	file, err := h.exports.ExportReconciliation(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param from query string false "First session date (YYYY-MM-DD)"
// @Param to query string false "Last session date (YYYY-MM-DD)"
// @Param class_id query string false "Class ID"
// @Param type query string false "Session type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	var err error
	if filter.From, err = optionalDate(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = optionalDate(c, "to"); err != nil {
		response.Error(c, err)
		return
	}
	filter.ClassID = c.Query("class_id")
	filter.Type = models.SessionType(strings.ToUpper(c.Query("type")))
	filter.Page, filter.PageSize = pageParams(c)

	sessions, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

func optionalDate(c *gin.Context, param string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return nil, nil
	}
	parsed, err := dates.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+param)
	}
	return &parsed, nil
}

// Get godoc
// @Summary Get a session with its planned roster
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create an ad-hoc session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
