package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	aggregates "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/aggregates"
	aggtest "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/aggregates/testutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/repos"
	repotest "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/repos/testutil"
	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
)

type placementFixture struct {
	tx     *gorm.DB
	agg    domainagg.PlacementAggregate
	writes *aggtest.WriteRecorder
}

func newPlacementFixture(t *testing.T, runner func(tx *gorm.DB) aggregates.TxRunner) placementFixture {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	log := repotest.Logger(t)
	r := repos.NewPlacement(tx, log)
	writes := &aggtest.WriteRecorder{}
	base := aggregates.BaseDeps{
		DB:       tx,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(tx),
		Observer: writes,
		Versions: aggregates.NewVersionGuard(tx),
	}
	if runner != nil {
		base.Runner = runner(tx)
	}
	return placementFixture{
		tx:     tx,
		writes: writes,
		agg: aggregates.NewPlacementAggregate(aggregates.PlacementAggregateDeps{
			Base:        base,
			Candidates:  r.Candidates,
			Positions:   r.Positions,
			Allocations: r.Allocations,
			Dropouts:    r.Dropouts,
		}),
	}
}

func proposal(c *types.Candidate, p *types.Position, score float64) *types.Allocation {
	return &types.Allocation{
		CandidateID: c.ID,
		PositionID:  p.ID,
		Score:       score,
		Status:      types.AllocationProposed,
	}
}

func reloadPosition(t *testing.T, tx *gorm.DB, id uuid.UUID) types.Position {
	t.Helper()
	var p types.Position
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload position: %v", err)
	}
	return p
}

func reloadCandidate(t *testing.T, tx *gorm.DB, id uuid.UUID) types.Candidate {
	t.Helper()
	var c types.Candidate
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		t.Fatalf("reload candidate: %v", err)
	}
	return c
}

func countAllocations(t *testing.T, tx *gorm.DB, batchID string) int64 {
	t.Helper()
	var n int64
	if err := tx.Model(&types.Allocation{}).Where("batch_id = ?", batchID).Count(&n).Error; err != nil {
		t.Fatalf("count allocations: %v", err)
	}
	return n
}

func TestPlacementAggregate_CommitBatch(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 2, 7)
	c1 := repotest.SeedCandidate(t, ctx, f.tx, 9)
	c2 := repotest.SeedCandidate(t, ctx, f.tx, 8)

	snap, err := f.agg.LoadPool(ctx)
	if err != nil {
		t.Fatalf("LoadPool: %v", err)
	}
	if len(snap.Candidates) != 2 || len(snap.Positions) != 1 {
		t.Fatalf("unexpected pool: %d candidates %d positions", len(snap.Candidates), len(snap.Positions))
	}
	if snap.Positions[0].Remaining() != 2 {
		t.Fatalf("expected 2 remaining seats, got %d", snap.Positions[0].Remaining())
	}

	in := domainagg.CommitBatchInput{
		BatchID:          "MATCH-int-1",
		Allocations:      []*types.Allocation{proposal(c1, pos, 0.9), proposal(c2, pos, 0.8)},
		PositionVersions: map[uuid.UUID]int{pos.ID: snap.Positions[0].Position.Version},
	}
	res, err := f.agg.CommitBatch(ctx, in)
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if res.CandidatesMatched != 2 || len(res.AllocationIDs) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if in.Allocations[0].ID != res.AllocationIDs[0] {
		t.Fatalf("input allocations should carry committed ids")
	}
	if got := reloadCandidate(t, f.tx, c1.ID).AllocationStatus; got != types.CandidateMatched {
		t.Fatalf("candidate status: want MATCHED, got %s", got)
	}
	p := reloadPosition(t, f.tx, pos.ID)
	if p.FilledCount != 0 || p.Version != pos.Version+1 {
		t.Fatalf("position after batch: filled=%d version=%d", p.FilledCount, p.Version)
	}
	if got := f.writes.LastCode("Placement.CommitBatch"); got != aggregates.OutcomeSuccess {
		t.Fatalf("expected success outcome, got %q", got)
	}

	snap, err = f.agg.LoadPool(ctx)
	if err != nil {
		t.Fatalf("LoadPool after batch: %v", err)
	}
	if len(snap.Candidates) != 0 {
		t.Fatalf("matched candidates must leave the pool, got %d", len(snap.Candidates))
	}
	if snap.Positions[0].InUse != 2 || snap.Positions[0].Remaining() != 0 {
		t.Fatalf("proposals should count against capacity: %+v", snap.Positions[0])
	}
}

func TestPlacementAggregate_CommitBatchStaleVersion(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 2, 7)
	c := repotest.SeedCandidate(t, ctx, f.tx, 9)

	_, err := f.agg.CommitBatch(ctx, domainagg.CommitBatchInput{
		BatchID:          "MATCH-stale",
		Allocations:      []*types.Allocation{proposal(c, pos, 0.9)},
		PositionVersions: map[uuid.UUID]int{pos.ID: pos.Version + 3},
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n := f.writes.Conflicts(); n != 1 {
		t.Fatalf("expected one conflict outcome, got %d", n)
	}
	if countAllocations(t, f.tx, "MATCH-stale") != 0 {
		t.Fatalf("no allocation should persist after conflict")
	}
	if got := reloadCandidate(t, f.tx, c.ID).AllocationStatus; got != types.CandidatePending {
		t.Fatalf("candidate should stay PENDING, got %s", got)
	}
}

func TestPlacementAggregate_CommitBatchOverCapacity(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 1, 7)
	c1 := repotest.SeedCandidate(t, ctx, f.tx, 9)
	c2 := repotest.SeedCandidate(t, ctx, f.tx, 8)

	_, err := f.agg.CommitBatch(ctx, domainagg.CommitBatchInput{
		BatchID:          "MATCH-over",
		Allocations:      []*types.Allocation{proposal(c1, pos, 0.9), proposal(c2, pos, 0.8)},
		PositionVersions: map[uuid.UUID]int{pos.ID: pos.Version},
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for over-capacity batch, got %v", err)
	}
	if countAllocations(t, f.tx, "MATCH-over") != 0 {
		t.Fatalf("over-capacity batch must not persist")
	}
}

func TestPlacementAggregate_CommitBatchValidation(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	id := uuid.New()
	cases := []domainagg.CommitBatchInput{
		{},
		{BatchID: "MATCH-v", Allocations: []*types.Allocation{{CandidateID: id, Status: types.AllocationProposed}}},
		{BatchID: "MATCH-v", Allocations: []*types.Allocation{{CandidateID: id, PositionID: id, Status: types.AllocationAccepted}}},
		{BatchID: "MATCH-v", Allocations: []*types.Allocation{
			{CandidateID: id, PositionID: uuid.New(), Status: types.AllocationProposed},
			{CandidateID: id, PositionID: uuid.New(), Status: types.AllocationProposed},
		}},
	}
	for i, in := range cases {
		if _, err := f.agg.CommitBatch(ctx, in); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestPlacementAggregate_CommitFailureRollsBack(t *testing.T) {
	boom := errors.New("commit failed")
	var injected *aggtest.InjectedTxRunner
	f := newPlacementFixture(t, func(tx *gorm.DB) aggregates.TxRunner {
		injected = &aggtest.InjectedTxRunner{Inner: aggregates.NewGormTxRunner(tx), FailCommit: boom}
		return injected
	})
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 1, 7)
	c := repotest.SeedCandidate(t, ctx, f.tx, 9)

	_, err := f.agg.CommitBatch(ctx, domainagg.CommitBatchInput{
		BatchID:          "MATCH-rollback",
		Allocations:      []*types.Allocation{proposal(c, pos, 0.9)},
		PositionVersions: map[uuid.UUID]int{pos.ID: pos.Version},
	})
	if !domainagg.IsCode(err, domainagg.CodeInternal) || !errors.Is(err, boom) {
		t.Fatalf("expected internal error wrapping commit failure, got %v", err)
	}
	if injected.RollbackCalls != 1 || injected.CommitCalls != 0 {
		t.Fatalf("unexpected runner counters: %+v", injected)
	}
	if countAllocations(t, f.tx, "MATCH-rollback") != 0 {
		t.Fatalf("allocation persisted despite failed commit")
	}
	if got := reloadCandidate(t, f.tx, c.ID).AllocationStatus; got != types.CandidatePending {
		t.Fatalf("candidate status leaked from failed commit: %s", got)
	}
	if got := reloadPosition(t, f.tx, pos.ID).Version; got != pos.Version {
		t.Fatalf("position version leaked from failed commit: %d", got)
	}
}

// seedAccepted places c at pos as an ACCEPTED, reserved allocation.
func seedAccepted(t *testing.T, ctx context.Context, f placementFixture, c *types.Candidate, pos *types.Position) *types.Allocation {
	t.Helper()
	if err := f.tx.Model(&types.Position{}).Where("id = ?", pos.ID).Update("filled_count", 1).Error; err != nil {
		t.Fatalf("set filled: %v", err)
	}
	if err := f.tx.Model(&types.Candidate{}).Where("id = ?", c.ID).Update("allocation_status", types.CandidateAccepted).Error; err != nil {
		t.Fatalf("set candidate status: %v", err)
	}
	return repotest.SeedAllocation(t, ctx, f.tx, &types.Allocation{
		CandidateID:      c.ID,
		PositionID:       pos.ID,
		Score:            0.9,
		Status:           types.AllocationAccepted,
		CapacityReserved: true,
	})
}

func ranked(score float64, ids ...uuid.UUID) []domainagg.ReplacementPick {
	out := make([]domainagg.ReplacementPick, 0, len(ids))
	for _, id := range ids {
		out = append(out, domainagg.ReplacementPick{CandidateID: id, Score: score, Explanation: "replacement"})
	}
	return out
}

func TestPlacementAggregate_ReleaseSlotReplaced(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 1, 7)
	placed := repotest.SeedCandidate(t, ctx, f.tx, 9)
	waiting := repotest.SeedCandidate(t, ctx, f.tx, 8)
	busy := repotest.SeedCandidate(t, ctx, f.tx, 9.5)
	al := seedAccepted(t, ctx, f, placed, pos)
	if err := f.tx.Model(&types.Candidate{}).Where("id = ?", busy.ID).Update("allocation_status", types.CandidateMatched).Error; err != nil {
		t.Fatalf("set busy status: %v", err)
	}

	// busy is MATCHED and the second id is unknown, so waiting is the first eligible entry.
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := f.agg.ReleaseSlot(ctx, domainagg.ReleaseSlotInput{
		AllocationID:       al.ID,
		Reason:             "relocated",
		InitiatedBy:        types.InitiatorCandidate,
		ReplacementBatchID: "REALLOC-int",
		Ranked:             ranked(0.8, busy.ID, uuid.New(), waiting.ID, placed.ID),
		ReleasedAt:         at,
	})
	if err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	if res.Released.Status != types.AllocationDropped {
		t.Fatalf("released status: want DROPPED, got %s", res.Released.Status)
	}
	if res.Replacement == nil || res.Replacement.CandidateID != waiting.ID || !res.Replacement.CapacityReserved {
		t.Fatalf("unexpected replacement: %+v", res.Replacement)
	}
	if res.Position.FilledCount != 1 {
		t.Fatalf("filled should stay 1 after replacement, got %d", res.Position.FilledCount)
	}
	if !res.Event.ReplacementFound || res.Event.ReplacementAllocationID == nil || *res.Event.ReplacementAllocationID != res.Replacement.ID {
		t.Fatalf("event should reference the replacement: %+v", res.Event)
	}

	p := reloadPosition(t, f.tx, pos.ID)
	if p.FilledCount != 1 || p.Version != pos.Version+1 {
		t.Fatalf("persisted position: filled=%d version=%d", p.FilledCount, p.Version)
	}
	if got := reloadCandidate(t, f.tx, placed.ID).AllocationStatus; got != types.CandidatePending {
		t.Fatalf("vacating candidate should return to PENDING, got %s", got)
	}
	if got := reloadCandidate(t, f.tx, waiting.ID).AllocationStatus; got != types.CandidateMatched {
		t.Fatalf("replacement candidate should be MATCHED, got %s", got)
	}
	var events int64
	if err := f.tx.Model(&types.DropoutEvent{}).Where("allocation_id = ?", al.ID).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one dropout event, got %d", events)
	}
}

func TestPlacementAggregate_ReleaseSlotOpenAndIdempotent(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 1, 7)
	placed := repotest.SeedCandidate(t, ctx, f.tx, 9)
	al := seedAccepted(t, ctx, f, placed, pos)

	in := domainagg.ReleaseSlotInput{
		AllocationID:       al.ID,
		Reason:             "position withdrawn",
		InitiatedBy:        types.InitiatorOrganization,
		ReplacementBatchID: "REALLOC-open",
	}
	res, err := f.agg.ReleaseSlot(ctx, in)
	if err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	if res.Released.Status != types.AllocationRejected {
		t.Fatalf("organization release should REJECT, got %s", res.Released.Status)
	}
	if res.Replacement != nil || res.Event.ReplacementFound {
		t.Fatalf("expected open slot, got replacement %+v", res.Replacement)
	}
	if res.Position.FilledCount != 0 {
		t.Fatalf("filled should drop to 0, got %d", res.Position.FilledCount)
	}

	_, err = f.agg.ReleaseSlot(ctx, in)
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("second release should be an invariant violation, got %v", err)
	}
	if got := reloadPosition(t, f.tx, pos.ID).FilledCount; got != 0 {
		t.Fatalf("second release must not decrement again, filled=%d", got)
	}
	var events int64
	if err := f.tx.Model(&types.DropoutEvent{}).Where("allocation_id = ?", al.ID).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("second release must not record another event, got %d", events)
	}
}

func TestPlacementAggregate_ReleaseSlotReproposesVacatingCandidate(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 1, 7)
	placed := repotest.SeedCandidate(t, ctx, f.tx, 9)
	al := seedAccepted(t, ctx, f, placed, pos)

	res, err := f.agg.ReleaseSlot(ctx, domainagg.ReleaseSlotInput{
		AllocationID:       al.ID,
		InitiatedBy:        types.InitiatorSystem,
		ReplacementBatchID: "REALLOC-self",
		Ranked:             ranked(0.9, placed.ID),
	})
	if err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	if res.Replacement == nil || res.Replacement.CandidateID != placed.ID {
		t.Fatalf("vacating candidate should be proposed again, got %+v", res.Replacement)
	}
	if got := reloadCandidate(t, f.tx, placed.ID).AllocationStatus; got != types.CandidateMatched {
		t.Fatalf("re-proposed candidate should be MATCHED, got %s", got)
	}
	if got := reloadPosition(t, f.tx, pos.ID).FilledCount; got != 1 {
		t.Fatalf("filled should stay 1, got %d", got)
	}
}

func TestPlacementAggregate_ReleaseSlotNotFound(t *testing.T) {
	f := newPlacementFixture(t, nil)
	_, err := f.agg.ReleaseSlot(context.Background(), domainagg.ReleaseSlotInput{
		AllocationID: uuid.New(),
		InitiatedBy:  types.InitiatorSystem,
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if _, err := f.agg.GetAllocation(context.Background(), uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("GetAllocation miss: expected not_found, got %v", err)
	}
}

func TestPlacementAggregate_AcceptAllocation(t *testing.T) {
	f := newPlacementFixture(t, nil)
	ctx := context.Background()
	org := repotest.SeedOrganization(t, ctx, f.tx, "Technology")
	pos := repotest.SeedPosition(t, ctx, f.tx, org, 1, 7)
	c := repotest.SeedCandidate(t, ctx, f.tx, 9)

	res, err := f.agg.CommitBatch(ctx, domainagg.CommitBatchInput{
		BatchID:          "MATCH-accept",
		Allocations:      []*types.Allocation{proposal(c, pos, 0.9)},
		PositionVersions: map[uuid.UUID]int{pos.ID: pos.Version},
	})
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	id := res.AllocationIDs[0]

	acc, err := f.agg.AcceptAllocation(ctx, domainagg.AcceptAllocationInput{AllocationID: id})
	if err != nil {
		t.Fatalf("AcceptAllocation: %v", err)
	}
	if acc.Allocation.Status != types.AllocationAccepted || !acc.Allocation.CapacityReserved {
		t.Fatalf("unexpected accepted allocation: %+v", acc.Allocation)
	}
	if acc.Position.FilledCount != 1 {
		t.Fatalf("accept should fill the seat, got %d", acc.Position.FilledCount)
	}
	if got := reloadCandidate(t, f.tx, c.ID).AllocationStatus; got != types.CandidateAccepted {
		t.Fatalf("candidate should be ACCEPTED, got %s", got)
	}

	again, err := f.agg.AcceptAllocation(ctx, domainagg.AcceptAllocationInput{AllocationID: id})
	if err != nil {
		t.Fatalf("repeat accept: %v", err)
	}
	if again.Position.FilledCount != 1 {
		t.Fatalf("repeat accept must not double count, filled=%d", again.Position.FilledCount)
	}

	if _, err := f.agg.ReleaseSlot(ctx, domainagg.ReleaseSlotInput{AllocationID: id, InitiatedBy: types.InitiatorCandidate}); err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	_, err = f.agg.AcceptAllocation(ctx, domainagg.AcceptAllocationInput{AllocationID: id})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("accepting a dropped allocation should fail, got %v", err)
	}
}
