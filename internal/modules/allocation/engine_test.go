package allocation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation/memstore"
)

var (
	skillPool    = []string{"Go", "Python", "React", "SQL", "Docker", "Java"}
	locationPool = []string{"Mumbai", "Pune", "Delhi"}
)

func randomPool(rng *rand.Rand, store *memstore.Store, candidates, positions int) {
	for i := 0; i < candidates; i++ {
		var skills []placement.SkillLevel
		for _, idx := range rng.Perm(len(skillPool))[:1+rng.Intn(3)] {
			skills = append(skills, placement.SkillLevel{Name: skillPool[idx], Level: 1 + rng.Intn(5)})
		}
		c := candidate(fmt.Sprintf("STU-%03d", i), 5+rng.Float64()*5, skills...)
		c.PreferredLocations = []string{locationPool[rng.Intn(len(locationPool))]}
		store.AddCandidate(c)
	}
	for i := 0; i < positions; i++ {
		var req []placement.RequiredSkill
		for _, idx := range rng.Perm(len(skillPool))[:1+rng.Intn(3)] {
			req = append(req, placement.RequiredSkill{Name: skillPool[idx], Weight: float64(1 + rng.Intn(3))})
		}
		p := position(fmt.Sprintf("Intern %d", i), 1+rng.Intn(3), 5+rng.Float64()*3, req...)
		p.Location = locationPool[rng.Intn(len(locationPool))]
		store.AddPosition(p)
	}
}

func checkInvariants(t *testing.T, store *memstore.Store) {
	t.Helper()
	active := map[string]int{}
	unreserved := map[string]int{}
	for _, a := range store.Allocations() {
		c := store.Candidate(a.CandidateID)
		p := store.Position(a.PositionID)
		if a.Score <= DefaultMatchThreshold {
			t.Fatalf("allocation %s scored %.3f at or below threshold", a.ID, a.Score)
		}
		if c.GPA < p.MinGPA {
			t.Fatalf("allocation %s violates GPA floor (%.2f < %.2f)", a.ID, c.GPA, p.MinGPA)
		}
		if a.Status.Active() {
			active[a.CandidateID.String()]++
			if !a.CapacityReserved {
				unreserved[a.PositionID.String()]++
			}
		}
	}
	for id, n := range active {
		if n > 1 {
			t.Fatalf("candidate %s holds %d active allocations", id, n)
		}
	}
	seen := map[string]bool{}
	for _, a := range store.Allocations() {
		pid := a.PositionID.String()
		if seen[pid] {
			continue
		}
		seen[pid] = true
		p := store.Position(a.PositionID)
		if p.FilledCount < 0 || p.FilledCount > p.Capacity {
			t.Fatalf("position %s filled %d of %d", pid, p.FilledCount, p.Capacity)
		}
		if p.FilledCount+unreserved[pid] > p.Capacity {
			t.Fatalf("position %s oversubscribed: filled %d + proposed %d > %d", pid, p.FilledCount, unreserved[pid], p.Capacity)
		}
	}
}

func activeAllocations(store *memstore.Store) []*placement.Allocation {
	var out []*placement.Allocation
	for _, a := range store.Allocations() {
		if a.Status.Active() {
			out = append(out, a)
		}
	}
	return out
}

func TestEngine_RandomOperationsKeepInvariants(t *testing.T) {
	initiators := []placement.Initiator{placement.InitiatorCandidate, placement.InitiatorOrganization, placement.InitiatorSystem}
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		store := memstore.New()
		randomPool(rng, store, 30, 6)
		engine := newTestEngine(store)
		ctx := context.Background()

		for step := 0; step < 25; step++ {
			switch op := rng.Intn(3); {
			case op == 0 || step == 0:
				if _, err := engine.RunBatch(ctx, fmt.Sprintf("seed-%d-%d", seed, step)); err != nil {
					t.Fatalf("seed %d step %d: RunBatch: %v", seed, step, err)
				}
			case op == 1:
				act := activeAllocations(store)
				if len(act) == 0 {
					continue
				}
				a := act[rng.Intn(len(act))]
				if _, err := engine.Accept(ctx, a.ID); err != nil && !IsInvalidState(err) {
					t.Fatalf("seed %d step %d: Accept: %v", seed, step, err)
				}
			default:
				act := activeAllocations(store)
				if len(act) == 0 {
					continue
				}
				a := act[rng.Intn(len(act))]
				if _, err := engine.HandleSlotFreed(ctx, a.ID, "random", initiators[rng.Intn(len(initiators))]); err != nil {
					t.Fatalf("seed %d step %d: HandleSlotFreed: %v", seed, step, err)
				}
			}
			checkInvariants(t, store)
		}
	}
}

func TestEngine_ConcurrentBatchesAndDropouts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := memstore.New()
	randomPool(rng, store, 40, 5)
	engine := newTestEngine(store)
	ctx := context.Background()

	if _, err := engine.RunBatch(ctx, "seed"); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	victims := activeAllocations(store)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := engine.RunBatch(ctx, fmt.Sprintf("concurrent-%d", i)); err != nil && !IsCapacityRace(err) {
				t.Errorf("RunBatch: %v", err)
			}
		}(i)
	}
	for _, a := range victims {
		wg.Add(1)
		go func(a *placement.Allocation) {
			defer wg.Done()
			// Each victim is released twice; exactly one call may win.
			for j := 0; j < 2; j++ {
				if _, err := engine.HandleSlotFreed(ctx, a.ID, "", placement.InitiatorSystem); err != nil && !IsInvalidState(err) && !IsCapacityRace(err) {
					t.Errorf("HandleSlotFreed: %v", err)
				}
			}
		}(a)
	}
	wg.Wait()

	checkInvariants(t, store)
	events := map[string]int{}
	for _, ev := range store.DropoutEvents() {
		events[ev.AllocationID.String()]++
	}
	for id, n := range events {
		if n != 1 {
			t.Fatalf("allocation %s logged %d dropout events", id, n)
		}
	}
}

func TestEngine_Score(t *testing.T) {
	engine := newTestEngine(memstore.New())
	res := engine.Score(context.Background(), scenarioCandidate(), scenarioPosition(placement.RequiredSkill{Name: "Python", Weight: 1}))
	if res.TotalScore != 0.978 {
		t.Fatalf("expected 0.978, got %v", res.TotalScore)
	}
}
