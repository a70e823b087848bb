package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
)

type runnerFunc func(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error)

func (f runnerFunc) RunBatchAllocation(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error) {
	return f(ctx, batchID, trigger)
}

func TestScheduledBatchID(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 5, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "sched-20260302T040005Z", ScheduledBatchID(at))
}

func TestBatchSchedulerRunOnce(t *testing.T) {
	var gotID, gotTrigger string
	var hadDeadline bool
	s, err := NewBatchScheduler(nil, runnerFunc(func(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error) {
		gotID, gotTrigger = batchID, trigger
		_, hadDeadline = ctx.Deadline()
		return allocation.BatchResult{BatchID: batchID, MatchesGenerated: 2}, nil
	}), "@every 1h", time.Minute)
	require.NoError(t, err)
	s.now = fixedNow

	s.RunOnce(context.Background())
	assert.Equal(t, ScheduledBatchID(fixedNow()), gotID)
	assert.Equal(t, TriggerSchedule, gotTrigger)
	assert.True(t, hadDeadline)
}

func TestBatchSchedulerSwallowsRunErrors(t *testing.T) {
	calls := 0
	s, err := NewBatchScheduler(nil, runnerFunc(func(context.Context, string, string) (allocation.BatchResult, error) {
		calls++
		return allocation.BatchResult{}, errors.New("db down")
	}), "@every 1h", 0)
	require.NoError(t, err)
	s.RunOnce(context.Background())
	assert.Equal(t, 1, calls)
}

func TestNewBatchSchedulerRejectsBadInput(t *testing.T) {
	_, err := NewBatchScheduler(nil, nil, "@every 1h", time.Minute)
	require.Error(t, err)

	_, err = NewBatchScheduler(nil, runnerFunc(nil), "not a cron", time.Minute)
	require.Error(t, err)
}

func TestNewBatchSchedulerFromEnvDisabled(t *testing.T) {
	t.Setenv("ALLOCATION_BATCH_CRON", "")
	s, err := NewBatchSchedulerFromEnv(nil, runnerFunc(nil))
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestBatchSchedulerStartStop(t *testing.T) {
	s, err := NewBatchScheduler(nil, runnerFunc(func(context.Context, string, string) (allocation.BatchResult, error) {
		return allocation.BatchResult{}, nil
	}), "@every 1h", time.Minute)
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
