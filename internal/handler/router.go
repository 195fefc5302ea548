package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/altitutor/admin-api/internal/middleware"
	"github.com/altitutor/admin-api/internal/models"
)

// AuditFunc builds the audit middleware for an action on a resource.
type AuditFunc func(action, resource string) gin.HandlerFunc

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Sessions  *SessionHandler
	Roster    *RosterHandler
	Classes   *ClassHandler
	TutorLogs *TutorLogHandler
}

// RegisterRoutes mounts the planning and logging endpoints. The group is expected to carry JWT
// authentication already; a nil audit disables audit logging.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, audit AuditFunc) {
	if audit == nil {
		audit = func(string, string) gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }
	}
	adminOnly := middleware.RequireRoles(models.RoleAdminStaff)
	adminOrTutor := middleware.RequireRoles(models.RoleAdminStaff, models.RoleTutor)

	if h.Sessions != nil {
		sessions := api.Group("/sessions")
		sessions.POST("/precreate", adminOnly, audit(models.AuditActionPrecreate, "sessions"), h.Sessions.Precreate)
		sessions.GET("", adminOrTutor, h.Sessions.List)
		sessions.POST("", adminOnly, audit(models.AuditActionSessionCreate, "sessions"), h.Sessions.Create)
		sessions.GET("/:id", adminOrTutor, h.Sessions.Get)
		sessions.PUT("/:id", adminOnly, audit(models.AuditActionSessionUpdate, "sessions"), h.Sessions.Update)
		sessions.DELETE("/:id", adminOnly, audit(models.AuditActionSessionDelete, "sessions"), h.Sessions.Delete)
		sessions.GET("/:id/reconciliation", adminOrTutor, h.Sessions.Reconciliation)
		sessions.GET("/:id/reconciliation/export", adminOnly, h.Sessions.ExportReconciliation)
	}

	if h.Roster != nil {
		api.POST("/sessions/:id/students", adminOnly, audit(models.AuditActionRosterChange, "session_students"), h.Roster.AddStudent)
		api.DELETE("/sessions/:id/students/:studentId", adminOnly, audit(models.AuditActionRosterChange, "session_students"), h.Roster.RemoveStudent)
		api.POST("/sessions/:id/staff", adminOnly, audit(models.AuditActionRosterChange, "session_staff"), h.Roster.AddStaff)
		api.DELETE("/sessions/:id/staff/:staffId", adminOnly, audit(models.AuditActionRosterChange, "session_staff"), h.Roster.RemoveStaff)
		api.PATCH("/session-students/:id/plan", adminOnly, audit(models.AuditActionPlanChange, "session_students"), h.Roster.UpdateStudentPlan)
		api.PATCH("/session-staff/:id/plan", adminOnly, audit(models.AuditActionPlanChange, "session_staff"), h.Roster.UpdateStaffPlan)
	}

	if h.Classes != nil {
		classes := api.Group("/classes", adminOnly)
		classes.GET("", h.Classes.List)
		classes.POST("", audit(models.AuditActionClassCreate, "classes"), h.Classes.Create)
		classes.GET("/:id", h.Classes.Get)
		classes.PUT("/:id", audit(models.AuditActionClassUpdate, "classes"), h.Classes.Update)
		classes.PATCH("/:id/status", audit(models.AuditActionClassStatus, "classes"), h.Classes.SetStatus)
		classes.GET("/:id/students", h.Classes.ListStudents)
		classes.POST("/:id/students", audit(models.AuditActionEnrollment, "classes_students"), h.Classes.EnrollStudent)
		classes.DELETE("/:id/students/:studentId", audit(models.AuditActionEnrollment, "classes_students"), h.Classes.UnenrollStudent)
		classes.GET("/:id/staff", h.Classes.ListStaff)
		classes.POST("/:id/staff", audit(models.AuditActionEnrollment, "classes_staff"), h.Classes.AssignStaff)
		classes.DELETE("/:id/staff/:staffId", audit(models.AuditActionEnrollment, "classes_staff"), h.Classes.UnassignStaff)
	}

	if h.TutorLogs != nil {
		api.POST("/tutor-logs", adminOrTutor, audit(models.AuditActionTutorLogCreate, "tutor_logs"), h.TutorLogs.Create)
		api.GET("/sessions/:id/tutor-log", adminOrTutor, h.TutorLogs.GetBySession)
		api.GET("/staff/:id/unlogged-sessions", middleware.RBAC(string(models.RoleAdminStaff), middleware.RoleSelf), h.TutorLogs.ListUnlogged)
	}
}
