package allocation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type Action string

const (
	ActionReplaced Action = "REPLACED"
	ActionOpenSlot Action = "OPEN_SLOT"
)

type ReallocationResult struct {
	Success         bool       `json:"success"`
	Action          Action     `json:"action"`
	OldAllocationID uuid.UUID  `json:"old_allocation_id"`
	NewAllocationID *uuid.UUID `json:"new_allocation_id,omitempty"`

	Released    *placement.Allocation   `json:"-"`
	Replacement *placement.Allocation   `json:"-"`
	Position    *placement.Position     `json:"-"`
	Event       *placement.DropoutEvent `json:"-"`
}

type ReallocationEngineDeps struct {
	Store     domainagg.PlacementAggregate
	Generator *CandidateGenerator
	Locker    PositionLocker
	Config    Config
	Log       *logger.Logger
	Now       func() time.Time
}

// ReallocationEngine refills a single freed slot with the best remaining
// candidate. It scores with the same constraints as a batch but does not
// run the batch pipeline.
type ReallocationEngine struct {
	store     domainagg.PlacementAggregate
	generator *CandidateGenerator
	locker    PositionLocker
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

func NewReallocationEngine(deps ReallocationEngineDeps) *ReallocationEngine {
	cfg := deps.Config.withDefaults()
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	gen := deps.Generator
	if gen == nil {
		gen = NewCandidateGenerator(RuleBasedScorer{Weights: cfg.Weights}, cfg, log)
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ReallocationEngine{
		store:     deps.Store,
		generator: gen,
		locker:    locker,
		cfg:       cfg,
		log:       log.With("component", "ReallocationEngine"),
		now:       now,
	}
}

func NewReallocationBatchID(now time.Time) string {
	return ReallocIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// HandleSlotFreed terminates the allocation, returns its seat and proposes
// the best eligible replacement for the same position.
//
// A second call for an allocation that is already REJECTED or DROPPED fails
// with an invalid-state error and changes nothing.
func (e *ReallocationEngine) HandleSlotFreed(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (ReallocationResult, error) {
	const op = "Allocation.HandleSlotFreed"
	if e.store == nil {
		return ReallocationResult{}, domainagg.NewError(domainagg.CodeInternal, op, "placement store not configured", nil)
	}
	if allocationID == uuid.Nil {
		return ReallocationResult{}, validationError(op, "missing allocation_id")
	}
	parsed, ok := placement.ParseInitiator(string(initiator))
	if !ok {
		return ReallocationResult{}, validationError(op, fmt.Sprintf("unknown initiator %q", initiator))
	}
	initiator = parsed
	reason = strings.TrimSpace(reason)

	ctx, span := tracer.Start(ctx, "allocation.reallocate", trace.WithAttributes(
		attribute.String("allocation_id", allocationID.String()),
		attribute.String("initiated_by", string(initiator)),
	))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxCommitAttempts; attempt++ {
		res, err := e.releaseOnce(ctx, allocationID, reason, initiator)
		if err == nil {
			span.SetAttributes(attribute.String("action", string(res.Action)), attribute.Int("attempts", attempt))
			return res, nil
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			if IsInvalidState(err) {
				e.log.Warn("Slot release ignored for terminal allocation", "allocation_id", allocationID.String(), "error", err)
			} else {
				e.log.Error("Slot release failed", "allocation_id", allocationID.String(), "error", err)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, string(domainagg.CodeOf(err)))
			return ReallocationResult{}, err
		}
		lastErr = err
		e.log.Warn("Slot release lost a capacity race, retrying", "allocation_id", allocationID.String(), "attempt", attempt, "error", err)
	}
	err := raceExhausted(op, e.cfg.MaxCommitAttempts, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "capacity race")
	return ReallocationResult{}, err
}

func (e *ReallocationEngine) releaseOnce(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (ReallocationResult, error) {
	const op = "Allocation.HandleSlotFreed"
	existing, err := e.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return ReallocationResult{}, err
	}
	if existing.Status.Terminal() {
		return ReallocationResult{}, domainagg.NewError(domainagg.CodeInvariantViolation, op,
			fmt.Sprintf("allocation %s already %s", allocationID, existing.Status), nil)
	}

	unlock, err := lockPositions(ctx, e.locker, []uuid.UUID{existing.PositionID})
	if err != nil {
		return ReallocationResult{}, domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	defer unlock()

	ranked, err := e.rank(ctx, existing)
	if err != nil {
		return ReallocationResult{}, err
	}

	now := e.now().UTC()
	out, err := e.store.ReleaseSlot(ctx, domainagg.ReleaseSlotInput{
		AllocationID:       allocationID,
		Reason:             reason,
		InitiatedBy:        initiator,
		ReplacementBatchID: NewReallocationBatchID(now),
		Ranked:             ranked,
		ReleasedAt:         now,
	})
	if err != nil {
		return ReallocationResult{}, err
	}

	res := ReallocationResult{
		Success:         true,
		Action:          ActionOpenSlot,
		OldAllocationID: allocationID,
		Released:        out.Released,
		Replacement:     out.Replacement,
		Position:        out.Position,
		Event:           out.Event,
	}
	if out.Replacement != nil {
		id := out.Replacement.ID
		res.Action = ActionReplaced
		res.NewAllocationID = &id
	}
	e.log.Info("Slot released",
		"allocation_id", allocationID.String(),
		"position_id", existing.PositionID.String(),
		"action", string(res.Action),
		"initiated_by", string(initiator),
	)
	return res, nil
}

// rank scores the pool against the freed position ahead of the write, so no
// scorer call runs while the store holds its locks. The vacating candidate
// counts as PENDING. Entries come out best first with equal scores going to
// the lower candidate id. A closed or missing position yields nil.
func (e *ReallocationEngine) rank(ctx context.Context, freed *placement.Allocation) ([]domainagg.ReplacementPick, error) {
	const op = "Allocation.HandleSlotFreed"
	snap, err := e.store.LoadPool(ctx)
	if err != nil {
		return nil, err
	}
	var pos *placement.Position
	for _, s := range snap.Positions {
		if s.Position != nil && s.Position.ID == freed.PositionID {
			pos = s.Position
			break
		}
	}
	if pos == nil {
		return nil, nil
	}

	vacating, err := e.store.GetCandidate(ctx, freed.CandidateID)
	if err != nil {
		return nil, err
	}
	vacating.AllocationStatus = placement.CandidatePending

	pool := make([]*placement.Candidate, 0, len(snap.Candidates)+1)
	for _, c := range snap.Candidates {
		if c.ID != vacating.ID {
			pool = append(pool, c)
		}
	}
	pool = append(pool, vacating)
	if err := ValidateRecords(op, pool, []*placement.Position{pos}); err != nil {
		return nil, err
	}

	pairs := make([]ScoredPair, 0, len(pool))
	for _, c := range pool {
		if err := ctx.Err(); err != nil {
			return nil, domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
		if pair, ok := e.generator.Pair(ctx, c, pos); ok {
			pairs = append(pairs, pair)
		}
	}
	Rank(pairs)

	out := make([]domainagg.ReplacementPick, 0, len(pairs))
	for _, pr := range pairs {
		out = append(out, domainagg.ReplacementPick{
			CandidateID: pr.Candidate.ID,
			Score:       pr.TotalScore,
			Breakdown:   pr.Breakdown,
			Explanation: pr.Explanation,
		})
	}
	return out, nil
}
