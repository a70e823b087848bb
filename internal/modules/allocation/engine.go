package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type EngineDeps struct {
	Store  domainagg.PlacementAggregate
	Scorer Scorer
	// Locker is shared by batch runs, reallocations and accepts so they
	// serialize on the same positions.
	Locker PositionLocker
	Config Config
	Log    *logger.Logger
	Now    func() time.Time
}

// Engine wires the generator, batch allocator and reallocation engine over
// one store and one locker.
type Engine struct {
	Generator *CandidateGenerator
	Batch     *BatchAllocator
	Realloc   *ReallocationEngine

	store  domainagg.PlacementAggregate
	locker PositionLocker
	cfg    Config
	log    *logger.Logger
	now    func() time.Time
}

func NewEngine(deps EngineDeps) *Engine {
	cfg := deps.Config.withDefaults()
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = RuleBasedScorer{Weights: cfg.Weights}
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	gen := NewCandidateGenerator(scorer, cfg, log)
	return &Engine{
		Generator: gen,
		Batch: NewBatchAllocator(BatchAllocatorDeps{
			Store: deps.Store, Generator: gen, Locker: locker, Config: cfg, Log: log, Now: now,
		}),
		Realloc: NewReallocationEngine(ReallocationEngineDeps{
			Store: deps.Store, Generator: gen, Locker: locker, Config: cfg, Log: log, Now: now,
		}),
		store:  deps.Store,
		locker: locker,
		cfg:    cfg,
		log:    log.With("component", "AllocationEngine"),
		now:    now,
	}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) RunBatch(ctx context.Context, batchID string) (BatchResult, error) {
	return e.Batch.Run(ctx, batchID)
}

func (e *Engine) HandleSlotFreed(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (ReallocationResult, error) {
	return e.Realloc.HandleSlotFreed(ctx, allocationID, reason, initiator)
}

// Score runs the configured scorer on one pair without constraints.
func (e *Engine) Score(ctx context.Context, c *placement.Candidate, p *placement.Position) ScoreResult {
	return e.Generator.Scorer().Score(ctx, c, p)
}

// Accept confirms a proposal and counts it against capacity.
func (e *Engine) Accept(ctx context.Context, allocationID uuid.UUID) (domainagg.AcceptAllocationResult, error) {
	const op = "Allocation.Accept"
	if allocationID == uuid.Nil {
		return domainagg.AcceptAllocationResult{}, validationError(op, "missing allocation_id")
	}
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxCommitAttempts; attempt++ {
		existing, err := e.store.GetAllocation(ctx, allocationID)
		if err != nil {
			return domainagg.AcceptAllocationResult{}, err
		}
		unlock, err := lockPositions(ctx, e.locker, []uuid.UUID{existing.PositionID})
		if err != nil {
			return domainagg.AcceptAllocationResult{}, domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
		res, err := e.store.AcceptAllocation(ctx, domainagg.AcceptAllocationInput{
			AllocationID: allocationID,
			AcceptedAt:   e.now().UTC(),
		})
		unlock()
		if err == nil {
			e.log.Info("Allocation accepted", "allocation_id", allocationID.String(), "position_id", existing.PositionID.String())
			return res, nil
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			return domainagg.AcceptAllocationResult{}, err
		}
		lastErr = err
	}
	return domainagg.AcceptAllocationResult{}, raceExhausted(op, e.cfg.MaxCommitAttempts, lastErr)
}
