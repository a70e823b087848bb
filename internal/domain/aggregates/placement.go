package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
)

// PlacementAggregateContract is shared by the SQL and in-memory stores.
var PlacementAggregateContract = Contract{
	Name:   "Placement",
	OwnsTx: true,
	Invariants: []Invariant{
		InvariantCapacity,
		InvariantSingleActive,
		InvariantCandidateStatus,
		InvariantTerminalAllocation,
	},
}

// PlacementAggregate owns the candidate/position/allocation graph.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation, CodeRetryable, CodeInternal.
type PlacementAggregate interface {
	Aggregate

	// LoadPool reads eligible candidates and open positions together with
	// the capacity in use and the version of each position.
	LoadPool(ctx context.Context) (PoolSnapshot, error)

	// GetAllocation reads one allocation. A miss is CodeNotFound.
	GetAllocation(ctx context.Context, id uuid.UUID) (*placement.Allocation, error)

	// GetCandidate reads one candidate regardless of status. A miss is
	// CodeNotFound.
	GetCandidate(ctx context.Context, id uuid.UUID) (*placement.Candidate, error)

	// CommitBatch inserts PROPOSED allocations and marks their candidates
	// MATCHED. It fails with CodeConflict when any touched position changed
	// since the snapshot or a candidate is no longer PENDING.
	CommitBatch(ctx context.Context, in CommitBatchInput) (CommitBatchResult, error)

	// ReleaseSlot terminates an active allocation, records the dropout and
	// returns the seat. If the seat is free it proposes the first entry of
	// Ranked that is still eligible once the vacating candidate is PENDING
	// again. No scoring happens inside the write.
	ReleaseSlot(ctx context.Context, in ReleaseSlotInput) (ReleaseSlotResult, error)

	// AcceptAllocation moves a PROPOSED allocation to ACCEPTED and counts
	// it against the position's capacity if it was not already.
	AcceptAllocation(ctx context.Context, in AcceptAllocationInput) (AcceptAllocationResult, error)
}

// PositionSlot is an open position with its capacity usage at snapshot time.
// InUse is FilledCount plus outstanding proposals that hold no reservation.
type PositionSlot struct {
	Position *placement.Position
	InUse    int
}

func (s PositionSlot) Remaining() int {
	if s.Position == nil {
		return 0
	}
	if r := s.Position.Capacity - s.InUse; r > 0 {
		return r
	}
	return 0
}

type PoolSnapshot struct {
	Candidates []*placement.Candidate
	Positions  []PositionSlot
	ReadAt     time.Time
}

type CommitBatchInput struct {
	BatchID     string
	Allocations []*placement.Allocation
	// PositionVersions holds the version read for each position receiving
	// at least one allocation.
	PositionVersions map[uuid.UUID]int
	CommittedAt      time.Time
}

type CommitBatchResult struct {
	BatchID           string
	AllocationIDs     []uuid.UUID
	CandidatesMatched int
}

// ReplacementPick is a scored candidate that may refill a slot.
type ReplacementPick struct {
	CandidateID uuid.UUID
	Score       float64
	Breakdown   placement.Breakdown
	Explanation string
}

type ReleaseSlotInput struct {
	AllocationID       uuid.UUID
	Reason             string
	InitiatedBy        placement.Initiator
	ReplacementBatchID string
	// Ranked lists replacement candidates best first, scored before the
	// write. Entries that are no longer PENDING, unavailable, or hold an
	// active allocation are skipped. Empty leaves the slot open.
	Ranked     []ReplacementPick
	ReleasedAt time.Time
}

type ReleaseSlotResult struct {
	Released    *placement.Allocation
	Replacement *placement.Allocation
	Position    *placement.Position
	Event       *placement.DropoutEvent
}

type AcceptAllocationInput struct {
	AllocationID uuid.UUID
	AcceptedAt   time.Time
}

type AcceptAllocationResult struct {
	Allocation *placement.Allocation
	Position   *placement.Position
}
