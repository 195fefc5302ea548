package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/altitutor/admin-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(nil, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"cache":    nil,
	})
	router := gin.New()
	router.GET("/ready", healthy.Ready)
	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	failing := NewMetricsHandler(nil, map[string]HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	})
	router = gin.New()
	router.GET("/ready", failing.Ready)
	resp = performRequest(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(service.NewMetricsService(), nil).Prometheus)
	router.GET("/disabled", NewMetricsHandler(nil, nil).Prometheus)

	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "sessions_materialized_total")

	resp = performRequest(router, httptest.NewRequest(http.MethodGet, "/disabled", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
