package allocation

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// BatchResult reports one batch run. The waitlist is computed per run and
// never stored.
type BatchResult struct {
	BatchID             string                  `json:"batch_id"`
	CandidatesProcessed int                     `json:"candidates_processed"`
	MatchesGenerated    int                     `json:"matches_generated"`
	WaitlistedCount     int                     `json:"waitlisted_count"`
	WaitlistedIDs       []uuid.UUID             `json:"waitlisted_ids"`
	Allocations         []*placement.Allocation `json:"-"`
}

type BatchAllocatorDeps struct {
	Store     domainagg.PlacementAggregate
	Generator *CandidateGenerator
	Locker    PositionLocker
	Config    Config
	Log       *logger.Logger
	Now       func() time.Time
}

// BatchAllocator runs global greedy assignment over the whole pool.
type BatchAllocator struct {
	store     domainagg.PlacementAggregate
	generator *CandidateGenerator
	locker    PositionLocker
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

func NewBatchAllocator(deps BatchAllocatorDeps) *BatchAllocator {
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
	return &BatchAllocator{
		store:     deps.Store,
		generator: gen,
		locker:    locker,
		cfg:       cfg,
		log:       log.With("component", "BatchAllocator"),
		now:       now,
	}
}

func NewBatchID(now time.Time) string {
	return BatchIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// Run executes one batch. Batches are serialized. When the commit loses a
// race on a position's counters the pool is re-read and the batch
// regenerated, up to MaxCommitAttempts times. Nothing is written unless the
// whole batch commits.
func (b *BatchAllocator) Run(ctx context.Context, batchID string) (BatchResult, error) {
	const op = "Allocation.RunBatch"
	if b.store == nil {
		return BatchResult{}, domainagg.NewError(domainagg.CodeInternal, op, "placement store not configured", nil)
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		batchID = NewBatchID(b.now())
	}

	ctx, span := tracer.Start(ctx, "allocation.batch", trace.WithAttributes(attribute.String("batch_id", batchID)))
	defer span.End()

	unlock, err := b.locker.Lock(ctx, batchLockKey)
	if err != nil {
		err = domainagg.Wrap(domainagg.CodeRetryable, op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch lock")
		return BatchResult{}, err
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= b.cfg.MaxCommitAttempts; attempt++ {
		res, err := b.runOnce(ctx, batchID)
		if err == nil {
			span.SetAttributes(
				attribute.Int("candidates_processed", res.CandidatesProcessed),
				attribute.Int("matches_generated", res.MatchesGenerated),
				attribute.Int("attempts", attempt),
			)
			b.log.Info("Batch allocation committed",
				"batch_id", batchID,
				"candidates_processed", res.CandidatesProcessed,
				"matches_generated", res.MatchesGenerated,
				"waitlisted", res.WaitlistedCount,
			)
			return res, nil
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(domainagg.CodeOf(err)))
			b.log.Error("Batch allocation failed", "batch_id", batchID, "attempt", attempt, "error", err)
			return BatchResult{}, err
		}
		lastErr = err
		b.log.Warn("Batch commit lost a capacity race, regenerating", "batch_id", batchID, "attempt", attempt, "error", err)
	}
	err = raceExhausted(op, b.cfg.MaxCommitAttempts, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "capacity race")
	return BatchResult{}, err
}

func (b *BatchAllocator) runOnce(ctx context.Context, batchID string) (BatchResult, error) {
	snap, err := b.store.LoadPool(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	pool := make([]*placement.Candidate, 0, len(snap.Candidates))
	for _, c := range snap.Candidates {
		if c.Eligible() {
			pool = append(pool, c)
		}
	}
	open := make([]*placement.Position, 0, len(snap.Positions))
	positions := make([]*placement.Position, 0, len(snap.Positions))
	for _, s := range snap.Positions {
		open = append(open, s.Position)
		if s.Remaining() > 0 {
			positions = append(positions, s.Position)
		}
	}
	if err := ValidateRecords("Allocation.RunBatch", pool, open); err != nil {
		return BatchResult{}, err
	}

	pairs, err := b.generator.Generate(ctx, pool, positions)
	if err != nil {
		return BatchResult{}, err
	}
	plan := Assign(pairs, snap.Positions)

	now := b.now().UTC()
	allocs := make([]*placement.Allocation, 0, len(plan))
	versions := make(map[uuid.UUID]int)
	assigned := make(map[uuid.UUID]bool, len(plan))
	for _, pr := range plan {
		allocs = append(allocs, &placement.Allocation{
			ID:          uuid.New(),
			BatchID:     batchID,
			CandidateID: pr.Candidate.ID,
			PositionID:  pr.Position.ID,
			Score:       pr.TotalScore,
			Breakdown:   datatypes.NewJSONType(pr.Breakdown),
			Explanation: pr.Explanation,
			Status:      placement.AllocationProposed,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		versions[pr.Position.ID] = pr.Position.Version
		assigned[pr.Candidate.ID] = true
	}

	if len(allocs) > 0 {
		ids := make([]uuid.UUID, 0, len(versions))
		for id := range versions {
			ids = append(ids, id)
		}
		unlock, err := lockPositions(ctx, b.locker, ids)
		if err != nil {
			return BatchResult{}, domainagg.Wrap(domainagg.CodeRetryable, "Allocation.RunBatch", err)
		}
		_, err = b.store.CommitBatch(ctx, domainagg.CommitBatchInput{
			BatchID:          batchID,
			Allocations:      allocs,
			PositionVersions: versions,
			CommittedAt:      now,
		})
		unlock()
		if err != nil {
			return BatchResult{}, err
		}
	}

	waitlisted := make([]uuid.UUID, 0, len(pool)-len(assigned))
	for _, c := range pool {
		if !assigned[c.ID] {
			waitlisted = append(waitlisted, c.ID)
		}
	}
	return BatchResult{
		BatchID:             batchID,
		CandidatesProcessed: len(pool),
		MatchesGenerated:    len(allocs),
		WaitlistedCount:     len(waitlisted),
		WaitlistedIDs:       waitlisted,
		Allocations:         allocs,
	}, nil
}

type capacityCounter struct {
	capacity int
	filled   int
}

// Rank orders pairs by score descending, then candidate id ascending, then
// position id ascending, so equal scores always resolve the same way.
func Rank(pairs []ScoredPair) {
	slices.SortStableFunc(pairs, func(a, b ScoredPair) int {
		if a.TotalScore != b.TotalScore {
			if a.TotalScore > b.TotalScore {
				return -1
			}
			return 1
		}
		if c := compareUUID(a.Candidate.ID, b.Candidate.ID); c != 0 {
			return c
		}
		return compareUUID(a.Position.ID, b.Position.ID)
	})
}

// Assign ranks pairs and walks them once, giving each candidate at most one
// position and each position at most its remaining capacity. The walk is
// order-dependent and stays sequential.
func Assign(pairs []ScoredPair, slots []domainagg.PositionSlot) []ScoredPair {
	counters := make(map[uuid.UUID]*capacityCounter, len(slots))
	for _, s := range slots {
		if s.Position == nil {
			continue
		}
		counters[s.Position.ID] = &capacityCounter{capacity: s.Position.Capacity, filled: s.InUse}
	}

	Rank(pairs)
	assigned := make(map[uuid.UUID]bool)
	out := make([]ScoredPair, 0)
	for _, pr := range pairs {
		if assigned[pr.Candidate.ID] {
			continue
		}
		ctr, ok := counters[pr.Position.ID]
		if !ok || ctr.filled >= ctr.capacity {
			continue
		}
		assigned[pr.Candidate.ID] = true
		ctr.filled++
		out = append(out, pr)
	}
	return out
}
