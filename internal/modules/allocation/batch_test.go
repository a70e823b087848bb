package allocation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation/memstore"
)

func fixedNow() time.Time { return time.UnixMilli(1_700_000_000_000) }

func newTestEngine(store *memstore.Store) *Engine {
	return NewEngine(EngineDeps{Store: store, Config: Config{Workers: 4}, Now: fixedNow})
}

func TestRunBatch_CapacityOneWaitlistsLowerScore(t *testing.T) {
	store := memstore.New()
	a := store.AddCandidate(candidate("STU-A", 9.5, placement.SkillLevel{Name: "Go", Level: 5}))
	b := store.AddCandidate(candidate("STU-B", 8.0, placement.SkillLevel{Name: "Go", Level: 3}))
	p := store.AddPosition(position("Go Intern", 1, 7, placement.RequiredSkill{Name: "Go", Weight: 1}))

	res, err := newTestEngine(store).RunBatch(context.Background(), "batch-s3")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.BatchID != "batch-s3" || res.CandidatesProcessed != 2 || res.MatchesGenerated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.WaitlistedCount != 1 || res.WaitlistedIDs[0] != b.ID {
		t.Fatalf("expected B waitlisted, got %+v", res.WaitlistedIDs)
	}

	allocs := store.Allocations()
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}
	got := allocs[0]
	if got.CandidateID != a.ID || got.PositionID != p.ID || got.Status != placement.AllocationProposed {
		t.Fatalf("unexpected allocation %+v", got)
	}
	if got.CapacityReserved {
		t.Fatalf("batch proposals must not reserve capacity")
	}
	if store.Candidate(a.ID).AllocationStatus != placement.CandidateMatched {
		t.Fatalf("A should be MATCHED")
	}
	if store.Candidate(b.ID).AllocationStatus != placement.CandidatePending {
		t.Fatalf("B should stay PENDING")
	}
	if pos := store.Position(p.ID); pos.FilledCount != 0 {
		t.Fatalf("batch must not touch filled_count, got %d", pos.FilledCount)
	}
}

func TestRunBatch_GlobalGreedyOrder(t *testing.T) {
	store := memstore.New()
	// A scores 0.997 on backend and 0.907 on frontend. B scores 0.88 on
	// backend and 0.52 on frontend.
	a := store.AddCandidate(candidate("STU-A", 9.8, placement.SkillLevel{Name: "Go", Level: 5}, placement.SkillLevel{Name: "React", Level: 4}))
	b := store.AddCandidate(candidate("STU-B", 8.0, placement.SkillLevel{Name: "Go", Level: 4}))
	backend := store.AddPosition(position("Backend", 1, 0, placement.RequiredSkill{Name: "Go", Weight: 1}))
	frontend := store.AddPosition(position("Frontend", 1, 0, placement.RequiredSkill{Name: "React", Weight: 1}))

	res, err := newTestEngine(store).RunBatch(context.Background(), "")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !strings.HasPrefix(res.BatchID, BatchIDPrefix) {
		t.Fatalf("expected generated batch id, got %q", res.BatchID)
	}
	if res.BatchID != NewBatchID(fixedNow()) {
		t.Fatalf("expected batch id from clock, got %q", res.BatchID)
	}
	byCandidate := map[uuid.UUID]uuid.UUID{}
	for _, al := range store.Allocations() {
		byCandidate[al.CandidateID] = al.PositionID
	}
	if byCandidate[a.ID] != backend.ID {
		t.Fatalf("A should take backend, got %v", byCandidate[a.ID])
	}
	if byCandidate[b.ID] != frontend.ID {
		t.Fatalf("B should fall through to frontend, got %v", byCandidate[b.ID])
	}
	if res.WaitlistedCount != 0 {
		t.Fatalf("expected empty waitlist, got %+v", res.WaitlistedIDs)
	}
}

func TestRunBatch_TieBreakIsDeterministic(t *testing.T) {
	run := func() uuid.UUID {
		store := memstore.New()
		low := candidate("STU-low", 8, placement.SkillLevel{Name: "Go", Level: 4})
		low.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
		high := candidate("STU-high", 8, placement.SkillLevel{Name: "Go", Level: 4})
		high.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
		store.AddCandidate(high)
		store.AddCandidate(low)
		store.AddPosition(position("Go", 1, 0, placement.RequiredSkill{Name: "Go", Weight: 1}))
		if _, err := newTestEngine(store).RunBatch(context.Background(), "tie"); err != nil {
			t.Fatalf("RunBatch: %v", err)
		}
		return store.Allocations()[0].CandidateID
	}
	for i := 0; i < 5; i++ {
		if got := run(); got != uuid.MustParse("00000000-0000-0000-0000-000000000001") {
			t.Fatalf("equal scores must go to the lower candidate id, got %s", got)
		}
	}
}

func TestRunBatch_CountsOutstandingProposals(t *testing.T) {
	store := memstore.New()
	p := store.AddPosition(position("Go", 2, 0, placement.RequiredSkill{Name: "Go", Weight: 1}))
	prior := store.AddCandidate(candidate("STU-prior", 9, placement.SkillLevel{Name: "Go", Level: 5}))
	prior.AllocationStatus = placement.CandidateMatched
	store.AddCandidate(prior)
	store.AddAllocation(&placement.Allocation{BatchID: "earlier", CandidateID: prior.ID, PositionID: p.ID, Score: 0.9, Status: placement.AllocationProposed})

	store.AddCandidate(candidate("STU-1", 9, placement.SkillLevel{Name: "Go", Level: 5}))
	store.AddCandidate(candidate("STU-2", 9, placement.SkillLevel{Name: "Go", Level: 4}))

	res, err := newTestEngine(store).RunBatch(context.Background(), "second")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.MatchesGenerated != 1 || res.WaitlistedCount != 1 {
		t.Fatalf("expected one seat left, got %+v", res)
	}
}

func TestRunBatch_PersistenceFailureCommitsNothing(t *testing.T) {
	store := memstore.New()
	c := store.AddCandidate(candidate("STU-A", 9, placement.SkillLevel{Name: "Go", Level: 5}))
	store.AddPosition(position("Go", 1, 0, placement.RequiredSkill{Name: "Go", Weight: 1}))
	store.FailCommit = errors.New("disk full")

	_, err := newTestEngine(store).RunBatch(context.Background(), "fails")
	if !IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(store.Allocations()) != 0 {
		t.Fatalf("expected no allocations after failed commit")
	}
	if store.Candidate(c.ID).AllocationStatus != placement.CandidatePending {
		t.Fatalf("candidate must stay PENDING after failed commit")
	}
}

func TestRunBatch_RetriesCapacityRace(t *testing.T) {
	store := memstore.New()
	store.AddCandidate(candidate("STU-A", 9, placement.SkillLevel{Name: "Go", Level: 5}))
	p := store.AddPosition(position("Go", 1, 0, placement.RequiredSkill{Name: "Go", Weight: 1}))

	races := 1
	store.BeforeCommit = func() {
		if races == 0 {
			return
		}
		races--
		cur := store.Position(p.ID)
		cur.Version++
		store.AddPosition(cur)
	}

	res, err := newTestEngine(store).RunBatch(context.Background(), "race")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if res.MatchesGenerated != 1 {
		t.Fatalf("expected 1 match after retry, got %+v", res)
	}
}

func TestRunBatch_CapacityRaceExhausted(t *testing.T) {
	store := memstore.New()
	store.AddCandidate(candidate("STU-A", 9, placement.SkillLevel{Name: "Go", Level: 5}))
	p := store.AddPosition(position("Go", 1, 0, placement.RequiredSkill{Name: "Go", Weight: 1}))
	attempts := 0
	store.BeforeCommit = func() {
		attempts++
		cur := store.Position(p.ID)
		cur.Version++
		store.AddPosition(cur)
	}

	_, err := newTestEngine(store).RunBatch(context.Background(), "race")
	if !IsCapacityRace(err) {
		t.Fatalf("expected capacity race, got %v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("exhausted race should surface as retryable, got %v", err)
	}
	if attempts != DefaultMaxCommitAttempts {
		t.Fatalf("expected %d attempts, got %d", DefaultMaxCommitAttempts, attempts)
	}
	if len(store.Allocations()) != 0 {
		t.Fatalf("nothing may be committed")
	}
}

func TestAssign_RespectsSeededCounters(t *testing.T) {
	p := position("P", 2, 0)
	c1, c2, c3 := candidate("1", 9), candidate("2", 9), candidate("3", 9)
	pairs := []ScoredPair{
		{Candidate: c1, Position: p, ScoreResult: ScoreResult{TotalScore: 0.5}},
		{Candidate: c2, Position: p, ScoreResult: ScoreResult{TotalScore: 0.9}},
		{Candidate: c3, Position: p, ScoreResult: ScoreResult{TotalScore: 0.7}},
	}
	out := Assign(pairs, []domainagg.PositionSlot{{Position: p, InUse: 1}})
	if len(out) != 1 || out[0].Candidate != c2 {
		t.Fatalf("expected only the top pair to fit, got %d", len(out))
	}
}
