package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func bearer(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func protectedRouter(allowed ...string) *gin.Engine {
	auth := service.NewAuthService(service.AuthConfig{Secret: testSecret})
	r := gin.New()
	r.GET("/staff/:id/unlogged-sessions", JWT(auth), RBAC(allowed...), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentClaims(c).UserID)
	})
	return r
}

func TestJWTRejectsMissingAndMalformedTokens(t *testing.T) {
	r := protectedRouter(string(models.RoleAdminStaff))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/staff/staff-1/unlogged-sessions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestRBACAllowsRolesAndSelf(t *testing.T) {
	r := protectedRouter(string(models.RoleAdminStaff), RoleSelf)

	cases := []struct {
		name   string
		user   string
		role   models.UserRole
		target string
		status int
	}{
		{"admin any staff", "admin-1", models.RoleAdminStaff, "staff-9", http.StatusOK},
		{"tutor self", "staff-1", models.RoleTutor, "staff-1", http.StatusOK},
		{"tutor other", "staff-1", models.RoleTutor, "staff-2", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/staff/"+tc.target+"/unlogged-sessions", nil)
			req.Header.Set("Authorization", bearer(t, tc.user, tc.role))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRBACWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdminStaff), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type auditRecorder struct {
	entries []*models.AuditLog
}

func (a *auditRecorder) Create(_ context.Context, entry *models.AuditLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	recorder := &auditRecorder{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdminStaff})
		c.Next()
	})
	r.DELETE("/sessions/:id", Audit(recorder, zap.NewNop(), models.AuditActionSessionDelete, "session"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/sess-x", nil))
	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, models.AuditActionSessionDelete, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "sess-x", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), `"status":204`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/missing", nil))
	assert.Len(t, recorder.entries, 1)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/sess-x", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/at/all", nil))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] = true
				}
			}
		}
	}
	assert.Equal(t, map[string]bool{"/sessions/:id": true, unmatchedRoute: true}, paths)
}

func TestResponseMetaCollectsCacheHit(t *testing.T) {
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/x", WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	r := gin.New()
	var untouched, recorded map[string]interface{}
	r.GET("/x", func(c *gin.Context) {
		untouched = ExtractMeta(c)
		SetMeta(c, "source", "store")
		recorded = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Nil(t, untouched)
	assert.Equal(t, map[string]interface{}{"source": "store"}, recorded)
}
