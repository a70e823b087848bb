package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/clients/predictor"
	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/ctxutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// AllocationEngine is the core the service fronts. *allocation.Engine
// satisfies it.
type AllocationEngine interface {
	RunBatch(ctx context.Context, batchID string) (allocation.BatchResult, error)
	HandleSlotFreed(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error)
	Accept(ctx context.Context, allocationID uuid.UUID) (domainagg.AcceptAllocationResult, error)
	Score(ctx context.Context, c *placement.Candidate, p *placement.Position) allocation.ScoreResult
}

// PredictorStatus reports on the optional ML predictor.
type PredictorStatus interface {
	Status(ctx context.Context) predictor.Status
}

type DropoutInput struct {
	AllocationID uuid.UUID
	Reason       string
	InitiatedBy  string
}

type AllocationService interface {
	RunBatchAllocation(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error)
	// HandleDropout frees an allocation's slot, through the durable
	// dispatcher when one is configured.
	HandleDropout(ctx context.Context, in DropoutInput) (allocation.ReallocationResult, error)
	// HandleSlotFreed runs the reallocation inline. Durable workers call it.
	HandleSlotFreed(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error)
	RejectAllocation(ctx context.Context, in DropoutInput) (allocation.ReallocationResult, error)
	AcceptAllocation(ctx context.Context, allocationID uuid.UUID) (*placement.Allocation, error)
	CalculateScore(ctx context.Context, candidateID, positionID uuid.UUID) (allocation.ScoreResult, error)
	GetBatchResults(ctx context.Context, batchID string) ([]*placement.Allocation, error)
	MLStatus(ctx context.Context) predictor.Status
}

type AllocationServiceDeps struct {
	Log        *logger.Logger
	Engine     AllocationEngine
	Reader     PlacementReader
	Notifier   AllocationNotifier
	Dispatcher DropoutDispatcher
	Predictor  PredictorStatus
	Metrics    *observability.Metrics
}

type allocationService struct {
	log        *logger.Logger
	engine     AllocationEngine
	reader     PlacementReader
	notifier   AllocationNotifier
	dispatcher DropoutDispatcher
	predictor  PredictorStatus
	metrics    *observability.Metrics
}

func NewAllocationService(deps AllocationServiceDeps) (AllocationService, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("allocation engine required")
	}
	if deps.Reader == nil {
		return nil, fmt.Errorf("placement reader required")
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &allocationService{
		log:        log.With("service", "AllocationService"),
		engine:     deps.Engine,
		reader:     deps.Reader,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		predictor:  deps.Predictor,
		metrics:    deps.Metrics,
	}, nil
}

func (s *allocationService) RunBatchAllocation(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error) {
	if trigger == "" {
		trigger = TriggerAPI
	}
	start := time.Now()
	res, err := s.engine.RunBatch(ctx, batchID)
	status := "success"
	if err != nil {
		status = outcome(err)
	}
	s.metrics.ObserveBatch(trigger, status, res.MatchesGenerated, res.WaitlistedCount, time.Since(start))
	if err != nil {
		s.log.Warn("Batch allocation failed", ctxutil.LogFields(ctx, "batch_id", batchID, "trigger", trigger, "error", err)...)
		return allocation.BatchResult{}, err
	}
	s.log.Info("Batch allocation committed", ctxutil.LogFields(ctx,
		"batch_id", res.BatchID,
		"trigger", trigger,
		"matches", res.MatchesGenerated,
		"waitlisted", res.WaitlistedCount,
	)...)
	if s.notifier != nil {
		s.notifier.BatchCommitted(ctx, res)
	}
	return res, nil
}

func (s *allocationService) HandleDropout(ctx context.Context, in DropoutInput) (allocation.ReallocationResult, error) {
	const op = "AllocationService.HandleDropout"
	if in.AllocationID == uuid.Nil {
		return allocation.ReallocationResult{}, domainagg.NewError(domainagg.CodeValidation, op, "allocationId is required", nil)
	}
	initiator, ok := placement.ParseInitiator(in.InitiatedBy)
	if !ok {
		return allocation.ReallocationResult{}, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("invalid initiatedBy %q", in.InitiatedBy), nil)
	}
	if s.dispatcher == nil {
		return s.HandleSlotFreed(ctx, in.AllocationID, in.Reason, initiator)
	}
	return s.dispatcher.Dispatch(ctx, in.AllocationID, in.Reason, initiator)
}

func (s *allocationService) HandleSlotFreed(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error) {
	res, err := s.engine.HandleSlotFreed(ctx, allocationID, reason, initiator)
	if err != nil {
		s.metrics.IncReallocation(outcome(err), string(initiator))
		return allocation.ReallocationResult{}, err
	}
	s.metrics.IncReallocation(string(res.Action), string(initiator))
	s.log.Info("Slot freed", ctxutil.LogFields(ctx,
		"allocation_id", allocationID,
		"initiated_by", string(initiator),
		"action", string(res.Action),
	)...)
	if s.notifier != nil {
		s.notifier.SlotFreed(ctx, res)
	}
	return res, nil
}

// RejectAllocation is a decline by either side; it frees the slot the same
// way a dropout does. The default initiator is the organization.
func (s *allocationService) RejectAllocation(ctx context.Context, in DropoutInput) (allocation.ReallocationResult, error) {
	if strings.TrimSpace(in.InitiatedBy) == "" {
		in.InitiatedBy = string(placement.InitiatorOrganization)
	}
	if strings.TrimSpace(in.Reason) == "" {
		in.Reason = "rejected"
	}
	return s.HandleDropout(ctx, in)
}

func (s *allocationService) AcceptAllocation(ctx context.Context, allocationID uuid.UUID) (*placement.Allocation, error) {
	res, err := s.engine.Accept(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AllocationAccepted(ctx, res.Allocation)
	}
	return res.Allocation, nil
}

func (s *allocationService) CalculateScore(ctx context.Context, candidateID, positionID uuid.UUID) (allocation.ScoreResult, error) {
	const op = "AllocationService.CalculateScore"
	if candidateID == uuid.Nil || positionID == uuid.Nil {
		return allocation.ScoreResult{}, domainagg.NewError(domainagg.CodeValidation, op, "candidateId and positionId are required", nil)
	}
	c, err := s.reader.Candidate(ctx, candidateID)
	if err != nil {
		return allocation.ScoreResult{}, err
	}
	p, err := s.reader.Position(ctx, positionID)
	if err != nil {
		return allocation.ScoreResult{}, err
	}
	if err := allocation.ValidateRecords(op, []*placement.Candidate{c}, []*placement.Position{p}); err != nil {
		return allocation.ScoreResult{}, err
	}
	return s.engine.Score(ctx, c, p), nil
}

func (s *allocationService) GetBatchResults(ctx context.Context, batchID string) ([]*placement.Allocation, error) {
	const op = "AllocationService.GetBatchResults"
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "batchId is required", nil)
	}
	out, err := s.reader.BatchAllocations(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("batch %s not found", batchID), nil)
	}
	return out, nil
}

func (s *allocationService) MLStatus(ctx context.Context) predictor.Status {
	if s.predictor == nil {
		return predictor.Status{}
	}
	return s.predictor.Status(ctx)
}

func outcome(err error) string {
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
