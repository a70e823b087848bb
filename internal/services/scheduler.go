package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/envutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// BatchRunner is the slice of AllocationService the scheduler drives.
type BatchRunner interface {
	RunBatchAllocation(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error)
}

// BatchScheduler runs allocation batches on a cron schedule. A tick that
// fires while the previous batch is still running is skipped.
type BatchScheduler struct {
	log     *logger.Logger
	runner  BatchRunner
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	now     func() time.Time
}

// NewBatchSchedulerFromEnv returns nil when ALLOCATION_BATCH_CRON is unset.
func NewBatchSchedulerFromEnv(log *logger.Logger, runner BatchRunner) (*BatchScheduler, error) {
	spec := strings.TrimSpace(envutil.String("ALLOCATION_BATCH_CRON", "", log))
	if spec == "" {
		return nil, nil
	}
	timeout := envutil.Duration("ALLOCATION_BATCH_TIMEOUT", 10*time.Minute, log)
	return NewBatchScheduler(log, runner, spec, timeout)
}

func NewBatchScheduler(log *logger.Logger, runner BatchRunner, spec string, timeout time.Duration) (*BatchScheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("batch runner required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	s := &BatchScheduler{
		log:     log.With("component", "BatchScheduler"),
		runner:  runner,
		spec:    spec,
		timeout: timeout,
		now:     time.Now,
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid batch schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *BatchScheduler) Start() {
	s.cron.Start()
	s.log.Info("Batch scheduler started", "schedule", s.spec)
}

// Stop waits for a running batch to finish or ctx to expire.
func (s *BatchScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Batch scheduler stop timed out")
	}
}

// RunOnce runs one scheduled batch under a fresh batch id.
func (s *BatchScheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	batchID := ScheduledBatchID(s.now())
	res, err := s.runner.RunBatchAllocation(ctx, batchID, TriggerSchedule)
	if err != nil {
		s.log.Error("Scheduled batch failed", "batch_id", batchID, "error", err)
		return
	}
	s.log.Info("Scheduled batch completed",
		"batch_id", batchID,
		"matches", res.MatchesGenerated,
		"waitlisted", res.WaitlistedCount,
	)
}

func ScheduledBatchID(t time.Time) string {
	return "sched-" + t.UTC().Format("20060102T150405Z")
}
