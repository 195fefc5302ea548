package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/pkg/dates"
)

const (
	defaultPrecreateSchedule = "15 2 * * *"
	defaultPrecreateTimeout  = 4 * time.Minute
)

type precreateRunner interface {
	Precreate(ctx context.Context, params PrecreateParams) (*dto.PrecreateSessionsResult, error)
}

// PrecreateSchedulerConfig sets the cron expression and the rolling window around today.
type PrecreateSchedulerConfig struct {
	Schedule   string
	DaysBehind int
	DaysAhead  int
	Location   *time.Location
	Timeout    time.Duration
}

// PrecreateScheduler keeps a rolling window of sessions materialized on a cron schedule.
type PrecreateScheduler struct {
	runner precreateRunner
	cfg    PrecreateSchedulerConfig
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

// NewPrecreateScheduler registers the job; it does not start until Start is called.
func NewPrecreateScheduler(runner precreateRunner, cfg PrecreateSchedulerConfig, logger *zap.Logger) (*PrecreateScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = defaultPrecreateSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPrecreateTimeout
	}

	s := &PrecreateScheduler{runner: runner, cfg: cfg, logger: logger.Named("precreate"), now: time.Now}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger))
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("register precreate schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *PrecreateScheduler) Start() {
	s.logger.Info("precreate scheduler started", zap.String("schedule", s.cfg.Schedule))
	s.cron.Start()
}

// Stop prevents further runs and waits for a running job, bounded by ctx.
func (s *PrecreateScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("precreate scheduler stop timed out")
	}
}

// Window returns the inclusive date range a run covers relative to now.
func (s *PrecreateScheduler) Window() (time.Time, time.Time) {
	today := dates.Truncate(s.now(), s.cfg.Location)
	return today.AddDate(0, 0, -s.cfg.DaysBehind), today.AddDate(0, 0, s.cfg.DaysAhead)
}

// RunOnce materializes the current window immediately.
func (s *PrecreateScheduler) RunOnce(ctx context.Context) (*dto.PrecreateSessionsResult, error) {
	start, end := s.Window()
	return s.runner.Precreate(ctx, PrecreateParams{Start: start, End: end, Trigger: PrecreateTriggerCron})
}

func (s *PrecreateScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled precreate failed", zap.Error(err))
	}
}
