package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
)

type precreateRunnerStub struct {
	calls []PrecreateParams
}

func (s *precreateRunnerStub) Precreate(_ context.Context, params PrecreateParams) (*dto.PrecreateSessionsResult, error) {
	s.calls = append(s.calls, params)
	return &dto.PrecreateSessionsResult{Created: 1}, nil
}

func TestPrecreateSchedulerRunOnceUsesRollingWindow(t *testing.T) {
	runner := &precreateRunnerStub{}
	scheduler, err := NewPrecreateScheduler(runner, PrecreateSchedulerConfig{DaysBehind: 7, DaysAhead: 28}, zap.NewNop())
	require.NoError(t, err)
	scheduler.now = func() time.Time { return time.Date(2024, 10, 16, 23, 30, 0, 0, time.UTC) }

	result, err := scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, date(2024, 10, 9), runner.calls[0].Start)
	assert.Equal(t, date(2024, 11, 13), runner.calls[0].End)
	assert.Equal(t, PrecreateTriggerCron, runner.calls[0].Trigger)
	assert.Nil(t, runner.calls[0].CreatedBy)
}

func TestPrecreateSchedulerWindowFollowsLocation(t *testing.T) {
	loc := time.FixedZone("ACDT", 10*3600+1800)
	scheduler, err := NewPrecreateScheduler(&precreateRunnerStub{}, PrecreateSchedulerConfig{Location: loc, DaysAhead: 1}, zap.NewNop())
	require.NoError(t, err)
	// 23:30 UTC on the 16th is already the 17th in Adelaide.
	scheduler.now = func() time.Time { return time.Date(2024, 10, 16, 23, 30, 0, 0, time.UTC) }

	start, end := scheduler.Window()
	assert.Equal(t, date(2024, 10, 17), start)
	assert.Equal(t, date(2024, 10, 18), end)
}

func TestPrecreateSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewPrecreateScheduler(&precreateRunnerStub{}, PrecreateSchedulerConfig{Schedule: "not a cron"}, zap.NewNop())
	require.Error(t, err)
}

func TestPrecreateSchedulerStartStop(t *testing.T) {
	scheduler, err := NewPrecreateScheduler(&precreateRunnerStub{}, PrecreateSchedulerConfig{}, zap.NewNop())
	require.NoError(t, err)
	scheduler.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	scheduler.Stop(ctx)
}
