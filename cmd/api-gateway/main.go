package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/altitutor/admin-api/api/swagger"
	"github.com/altitutor/admin-api/internal/handler"
	internalmiddleware "github.com/altitutor/admin-api/internal/middleware"
	"github.com/altitutor/admin-api/internal/repository"
	"github.com/altitutor/admin-api/internal/service"
	"github.com/altitutor/admin-api/pkg/cache"
	"github.com/altitutor/admin-api/pkg/config"
	"github.com/altitutor/admin-api/pkg/database"
	"github.com/altitutor/admin-api/pkg/logger"
	corsmiddleware "github.com/altitutor/admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/altitutor/admin-api/pkg/middleware/requestid"
)

// @title Altitutor Admin API
// @version 1.0.0
// @description Session planning, tutor logs and attendance reconciliation for tutoring administrators
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Reconciliation.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, reconciliation cache disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	loc := cfg.Sessions.Location()
	validate := validator.New()
	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var cacheStore service.CacheRepository
	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Reconciliation.CacheTTL, logr, cacheStore != nil)

	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	tutorLogRepo := repository.NewTutorLogRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reconciliationStore := repository.NewReconciliationStore(sessionRepo, classRepo, participantRepo, tutorLogRepo)

	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	reconciliationSvc := service.NewReconciliationService(reconciliationStore, cacheSvc, metricsSvc, service.ReconciliationConfig{
		Location: loc,
		CacheTTL: cfg.Reconciliation.CacheTTL,
	}, logr)
	materializerSvc := service.NewMaterializerService(classRepo, enrollmentRepo, sessionRepo, cacheSvc, metricsSvc, service.MaterializerConfig{
		Location:     loc,
		MaxRangeDays: cfg.Precreate.MaxRangeDays,
	}, validate, logr)
	classSvc := service.NewClassService(classRepo, enrollmentRepo, reconciliationSvc, loc, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, participantRepo, reconciliationSvc, loc, validate, logr)
	rosterSvc := service.NewRosterService(sessionRepo, participantRepo, reconciliationSvc, validate, logr)
	tutorLogSvc := service.NewTutorLogService(tutorLogRepo, sessionRepo, reconciliationSvc, validate, logr)
	exportSvc := service.NewExportService(reconciliationSvc, nil, nil, logr)

	var scheduler *service.PrecreateScheduler
	if cfg.Precreate.CronEnabled {
		scheduler, err = service.NewPrecreateScheduler(materializerSvc, service.PrecreateSchedulerConfig{
			Schedule:   cfg.Precreate.CronSchedule,
			DaysBehind: cfg.Precreate.DaysBehind,
			DaysAhead:  cfg.Precreate.DaysAhead,
			Location:   loc,
		}, logr)
		if err != nil {
			logr.Fatal("failed to configure precreate schedule", zap.Error(err))
		}
		scheduler.Start()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	checks := map[string]handler.HealthCheck{"database": db.PingContext}
	if cacheRepo != nil {
		checks["cache"] = cacheRepo.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.JWT(authSvc))
	handler.RegisterRoutes(api, handler.Handlers{
		Sessions:  handler.NewSessionHandler(sessionSvc, materializerSvc, reconciliationSvc, exportSvc),
		Roster:    handler.NewRosterHandler(rosterSvc),
		Classes:   handler.NewClassHandler(classSvc),
		TutorLogs: handler.NewTutorLogHandler(tutorLogSvc),
	}, func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(auditRepo, logr, action, resource)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
