package aggregates

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/repos"
	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
)

const positionTable = "position"

type PlacementAggregateDeps struct {
	Base        BaseDeps
	Candidates  repos.CandidateRepo
	Positions   repos.PositionRepo
	Allocations repos.AllocationRepo
	Dropouts    repos.DropoutEventRepo
}

type placementAggregate struct {
	deps PlacementAggregateDeps
}

var _ domainagg.PlacementAggregate = (*placementAggregate)(nil)

func NewPlacementAggregate(deps PlacementAggregateDeps) domainagg.PlacementAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "PlacementAggregate")
	return &placementAggregate{deps: deps}
}

func (a *placementAggregate) Contract() domainagg.Contract {
	return domainagg.PlacementAggregateContract
}

func (a *placementAggregate) readCtx(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

func (a *placementAggregate) LoadPool(ctx context.Context) (domainagg.PoolSnapshot, error) {
	const op = "Placement.LoadPool"
	dbc := a.readCtx(ctx)
	snap := domainagg.PoolSnapshot{ReadAt: time.Now().UTC()}

	candidates, err := a.deps.Candidates.ListEligible(dbc)
	if err != nil {
		return snap, MapError(op, err)
	}
	positions, err := a.deps.Positions.ListOpen(dbc)
	if err != nil {
		return snap, MapError(op, err)
	}
	ids := make([]uuid.UUID, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.ID)
	}
	unreserved, err := a.deps.Allocations.CountUnreserved(dbc, ids, uuid.Nil)
	if err != nil {
		return snap, MapError(op, err)
	}

	snap.Candidates = candidates
	for _, p := range positions {
		snap.Positions = append(snap.Positions, domainagg.PositionSlot{
			Position: p,
			InUse:    p.FilledCount + unreserved[p.ID],
		})
	}
	return snap, nil
}

func (a *placementAggregate) GetAllocation(ctx context.Context, id uuid.UUID) (*types.Allocation, error) {
	const op = "Placement.GetAllocation"
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing allocation_id", nil)
	}
	out, err := a.deps.Allocations.GetByID(a.readCtx(ctx), id)
	if err != nil {
		return nil, MapError(op, fmt.Errorf("allocation %s: %w", id, err))
	}
	return out, nil
}

func (a *placementAggregate) GetCandidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error) {
	const op = "Placement.GetCandidate"
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing candidate_id", nil)
	}
	out, err := a.deps.Candidates.GetByID(a.readCtx(ctx), id)
	if err != nil {
		return nil, MapError(op, fmt.Errorf("candidate %s: %w", id, err))
	}
	return out, nil
}

func (a *placementAggregate) CommitBatch(ctx context.Context, in domainagg.CommitBatchInput) (domainagg.CommitBatchResult, error) {
	const op = "Placement.CommitBatch"
	var out domainagg.CommitBatchResult
	if in.BatchID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing batch_id", nil)
	}

	perPosition := map[uuid.UUID]int{}
	candidateIDs := make([]uuid.UUID, 0, len(in.Allocations))
	seen := map[uuid.UUID]bool{}
	for _, al := range in.Allocations {
		if al == nil || al.CandidateID == uuid.Nil || al.PositionID == uuid.Nil {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "allocation missing candidate or position", nil)
		}
		if al.Status != types.AllocationProposed || al.CapacityReserved {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "batch allocations must be unreserved proposals", nil)
		}
		if seen[al.CandidateID] {
			return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("candidate %s allocated twice", al.CandidateID), nil)
		}
		seen[al.CandidateID] = true
		candidateIDs = append(candidateIDs, al.CandidateID)
		perPosition[al.PositionID]++
	}
	if len(in.Allocations) == 0 {
		out.BatchID = in.BatchID
		return out, nil
	}

	at := in.CommittedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	// Lock positions in id order so concurrent writers cannot deadlock.
	positionIDs := make([]uuid.UUID, 0, len(perPosition))
	for id := range perPosition {
		positionIDs = append(positionIDs, id)
	}
	slices.SortFunc(positionIDs, func(x, y uuid.UUID) int { return slices.Compare(x[:], y[:]) })

	err := inWriteTx(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		locked := make(map[uuid.UUID]*types.Position, len(positionIDs))
		for _, pid := range positionIDs {
			p, err := a.deps.Positions.LockByID(dbc, pid)
			if err != nil {
				return fmt.Errorf("position %s: %w", pid, err)
			}
			want, ok := in.PositionVersions[pid]
			if !ok {
				return ConflictError(fmt.Sprintf("position %s missing from snapshot", pid))
			}
			if p.Version != want {
				return ConflictError(fmt.Sprintf("position %s changed since snapshot", pid))
			}
			if p.Status != types.PositionOpen {
				return ConflictError(fmt.Sprintf("position %s is closed", pid))
			}
			locked[pid] = p
		}
		unreserved, err := a.deps.Allocations.CountUnreserved(dbc, positionIDs, uuid.Nil)
		if err != nil {
			return err
		}
		for _, pid := range positionIDs {
			p := locked[pid]
			if p.FilledCount+unreserved[pid]+perPosition[pid] > p.Capacity {
				return ConflictError(fmt.Sprintf("position %s over capacity", pid))
			}
		}

		candidates, err := a.deps.Candidates.LockByIDs(dbc, candidateIDs)
		if err != nil {
			return err
		}
		if len(candidates) != len(candidateIDs) {
			return NotFoundError("one or more candidates not found")
		}
		for _, c := range candidates {
			if !c.Eligible() {
				return ConflictError(fmt.Sprintf("candidate %s no longer pending", c.ID))
			}
		}
		active, err := a.deps.Allocations.ActiveCandidateIDs(dbc, candidateIDs)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return ConflictError("candidate already holds an active allocation")
		}

		rows := make([]*types.Allocation, 0, len(in.Allocations))
		for _, al := range in.Allocations {
			row := *al
			if row.ID == uuid.Nil {
				row.ID = uuid.New()
			}
			row.BatchID = in.BatchID
			row.CreatedAt = at
			row.UpdatedAt = at
			rows = append(rows, &row)
		}
		if _, err := a.deps.Allocations.Create(dbc, rows); err != nil {
			return err
		}
		n, err := a.deps.Candidates.UpdateStatusIf(dbc, candidateIDs,
			[]types.CandidateStatus{types.CandidatePending}, types.CandidateMatched, at)
		if err != nil {
			return err
		}
		if int(n) != len(candidateIDs) {
			return ConflictError("candidate status changed during commit")
		}
		for _, pid := range positionIDs {
			p := locked[pid]
			if err := a.deps.Base.Versions.Bump(dbc, positionTable, pid, p.Version, map[string]any{"updated_at": at}); err != nil {
				return err
			}
		}

		out.AllocationIDs = make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			out.AllocationIDs = append(out.AllocationIDs, row.ID)
		}
		return nil
	})
	if err != nil {
		return domainagg.CommitBatchResult{}, err
	}
	for i, id := range out.AllocationIDs {
		in.Allocations[i].ID = id
	}
	out.BatchID = in.BatchID
	out.CandidatesMatched = len(candidateIDs)
	return out, nil
}

func (a *placementAggregate) ReleaseSlot(ctx context.Context, in domainagg.ReleaseSlotInput) (domainagg.ReleaseSlotResult, error) {
	const op = "Placement.ReleaseSlot"
	var out domainagg.ReleaseSlotResult
	if in.AllocationID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing allocation_id", nil)
	}
	at := in.ReleasedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	err := inWriteTx(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.ReleaseSlotResult{}

		cur, err := a.deps.Allocations.LockByID(dbc, in.AllocationID)
		if err != nil {
			return fmt.Errorf("allocation %s: %w", in.AllocationID, err)
		}
		if !cur.Status.Active() {
			return InvariantError(fmt.Sprintf("allocation %s already %s", cur.ID, cur.Status))
		}
		pos, err := a.deps.Positions.LockByID(dbc, cur.PositionID)
		if err != nil {
			return fmt.Errorf("position %s: %w", cur.PositionID, err)
		}

		terminal := in.InitiatedBy.TerminalStatus()
		ok, err := a.deps.Allocations.UpdateStatusIf(dbc, cur.ID,
			[]types.AllocationStatus{types.AllocationProposed, types.AllocationAccepted},
			map[string]interface{}{"status": terminal, "updated_at": at})
		if err != nil {
			return err
		}
		if err := requireApplied(ok, "allocation %s changed during release", cur.ID); err != nil {
			return err
		}
		if err := a.deps.Candidates.SetStatus(dbc, cur.CandidateID, types.CandidatePending, at); err != nil {
			return err
		}

		filled := pos.FilledCount
		if cur.HoldsReservation() && filled > 0 {
			filled--
		}

		var replacement *types.Allocation
		if pos.Status == types.PositionOpen && len(in.Ranked) > 0 {
			replacement, err = a.pickReplacement(dbc, in, cur, pos, filled, at)
			if err != nil {
				return err
			}
			if replacement != nil {
				filled++
			}
		}

		if err := a.deps.Base.Versions.Bump(dbc, positionTable, pos.ID, pos.Version, map[string]any{
			"filled_count": filled,
			"updated_at":   at,
		}); err != nil {
			return err
		}

		event := &types.DropoutEvent{
			ID:               uuid.New(),
			CandidateID:      cur.CandidateID,
			PositionID:       cur.PositionID,
			AllocationID:     cur.ID,
			Reason:           in.Reason,
			InitiatedBy:      in.InitiatedBy,
			ReplacementFound: replacement != nil,
			CreatedAt:        at,
		}
		if replacement != nil {
			rid := replacement.ID
			event.ReplacementAllocationID = &rid
		}
		if _, err := a.deps.Dropouts.Create(dbc, event); err != nil {
			return err
		}

		released := *cur
		released.Status = terminal
		released.UpdatedAt = at
		position := *pos
		position.FilledCount = filled
		position.Version = pos.Version + 1
		position.UpdatedAt = at

		out.Released = &released
		out.Replacement = replacement
		out.Position = &position
		out.Event = event
		return nil
	})
	if err != nil {
		return domainagg.ReleaseSlotResult{}, err
	}
	return out, nil
}

// pickReplacement proposes the first ranked candidate that is still eligible
// when the position has room. It returns nil when the slot stays open.
func (a *placementAggregate) pickReplacement(dbc dbctx.Context, in domainagg.ReleaseSlotInput, cur *types.Allocation, pos *types.Position, filled int, at time.Time) (*types.Allocation, error) {
	unreserved, err := a.deps.Allocations.CountUnreserved(dbc, []uuid.UUID{pos.ID}, cur.ID)
	if err != nil {
		return nil, err
	}
	if filled+unreserved[pos.ID] >= pos.Capacity {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(in.Ranked))
	for _, r := range in.Ranked {
		ids = append(ids, r.CandidateID)
	}
	rows, err := a.deps.Candidates.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Candidate, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	active, err := a.deps.Allocations.ActiveCandidateIDs(dbc, ids)
	if err != nil {
		return nil, err
	}

	for _, r := range in.Ranked {
		if !byID[r.CandidateID].Eligible() || active[r.CandidateID] {
			continue
		}
		n, err := a.deps.Candidates.UpdateStatusIf(dbc, []uuid.UUID{r.CandidateID},
			[]types.CandidateStatus{types.CandidatePending}, types.CandidateMatched, at)
		if err != nil {
			return nil, err
		}
		if n != 1 {
			return nil, ConflictError("replacement candidate no longer pending")
		}
		row := &types.Allocation{
			ID:               uuid.New(),
			BatchID:          in.ReplacementBatchID,
			CandidateID:      r.CandidateID,
			PositionID:       pos.ID,
			Score:            r.Score,
			Breakdown:        datatypes.NewJSONType(r.Breakdown),
			Explanation:      r.Explanation,
			Status:           types.AllocationProposed,
			CapacityReserved: true,
			CreatedAt:        at,
			UpdatedAt:        at,
		}
		if _, err := a.deps.Allocations.Create(dbc, []*types.Allocation{row}); err != nil {
			return nil, err
		}
		return row, nil
	}
	return nil, nil
}

func (a *placementAggregate) AcceptAllocation(ctx context.Context, in domainagg.AcceptAllocationInput) (domainagg.AcceptAllocationResult, error) {
	const op = "Placement.AcceptAllocation"
	var out domainagg.AcceptAllocationResult
	if in.AllocationID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing allocation_id", nil)
	}
	at := in.AcceptedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	err := inWriteTx(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cur, err := a.deps.Allocations.LockByID(dbc, in.AllocationID)
		if err != nil {
			return fmt.Errorf("allocation %s: %w", in.AllocationID, err)
		}
		pos, err := a.deps.Positions.LockByID(dbc, cur.PositionID)
		if err != nil {
			return fmt.Errorf("position %s: %w", cur.PositionID, err)
		}
		if cur.Status == types.AllocationAccepted {
			out = domainagg.AcceptAllocationResult{Allocation: cur, Position: pos}
			return nil
		}
		if cur.Status != types.AllocationProposed {
			return InvariantError(fmt.Sprintf("allocation %s is %s", cur.ID, cur.Status))
		}
		filled := pos.FilledCount
		if !cur.CapacityReserved {
			if filled >= pos.Capacity {
				return InvariantError(fmt.Sprintf("position %s is full", pos.ID))
			}
			filled++
		}

		ok, err := a.deps.Allocations.UpdateStatusIf(dbc, cur.ID,
			[]types.AllocationStatus{types.AllocationProposed},
			map[string]interface{}{"status": types.AllocationAccepted, "capacity_reserved": true, "updated_at": at})
		if err != nil {
			return err
		}
		if err := requireApplied(ok, "allocation %s changed during accept", cur.ID); err != nil {
			return err
		}
		if err := a.deps.Base.Versions.Bump(dbc, positionTable, pos.ID, pos.Version, map[string]any{
			"filled_count": filled,
			"updated_at":   at,
		}); err != nil {
			return err
		}
		if err := a.deps.Candidates.SetStatus(dbc, cur.CandidateID, types.CandidateAccepted, at); err != nil {
			return err
		}

		accepted := *cur
		accepted.Status = types.AllocationAccepted
		accepted.CapacityReserved = true
		accepted.UpdatedAt = at
		position := *pos
		position.FilledCount = filled
		position.Version = pos.Version + 1
		position.UpdatedAt = at
		out = domainagg.AcceptAllocationResult{Allocation: &accepted, Position: &position}
		return nil
	})
	if err != nil {
		return domainagg.AcceptAllocationResult{}, err
	}
	return out, nil
}
