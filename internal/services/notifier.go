package services

import (
	"context"
	"time"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/ctxutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/realtime"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/realtime/bus"
)

// =========================
// Allocation notifier
// =========================

// AllocationNotifier publishes committed allocation changes. Delivery is
// best effort: a failed publish is logged and never fails the operation.
type AllocationNotifier interface {
	BatchCommitted(ctx context.Context, res allocation.BatchResult)
	AllocationAccepted(ctx context.Context, a *placement.Allocation)
	SlotFreed(ctx context.Context, res allocation.ReallocationResult)
}

type allocationNotifier struct {
	log *logger.Logger
	bus bus.Bus
	now func() time.Time
}

func NewAllocationNotifier(log *logger.Logger, b bus.Bus) AllocationNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &allocationNotifier{log: log.With("service", "AllocationNotifier"), bus: b, now: time.Now}
}

func (n *allocationNotifier) publish(ctx context.Context, ev realtime.Event) {
	if n == nil || n.bus == nil {
		return
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("Allocation event publish failed", ctxutil.LogFields(ctx, "type", string(ev.Type), "error", err)...)
	}
}

func (n *allocationNotifier) BatchCommitted(ctx context.Context, res allocation.BatchResult) {
	for _, a := range res.Allocations {
		if a == nil {
			continue
		}
		ev := realtime.NewEvent(realtime.EventAllocationProposed, n.now().UTC())
		ev.BatchID = res.BatchID
		ev.AllocationID = ptr(a.ID)
		ev.PositionID = ptr(a.PositionID)
		ev.Data = map[string]any{"score": a.Score, "explanation": a.Explanation}
		n.publish(ctx, ev)
	}
	ev := realtime.NewEvent(realtime.EventBatchCompleted, n.now().UTC())
	ev.BatchID = res.BatchID
	ev.Data = map[string]any{
		"candidates_processed": res.CandidatesProcessed,
		"matches_generated":    res.MatchesGenerated,
		"waitlisted_count":     res.WaitlistedCount,
	}
	n.publish(ctx, ev)
}

func (n *allocationNotifier) AllocationAccepted(ctx context.Context, a *placement.Allocation) {
	if a == nil {
		return
	}
	ev := realtime.NewEvent(realtime.EventAllocationAccepted, n.now().UTC())
	ev.BatchID = a.BatchID
	ev.AllocationID = ptr(a.ID)
	ev.PositionID = ptr(a.PositionID)
	n.publish(ctx, ev)
}

func (n *allocationNotifier) SlotFreed(ctx context.Context, res allocation.ReallocationResult) {
	ev := realtime.NewEvent(realtime.EventSlotFreed, n.now().UTC())
	ev.AllocationID = ptr(res.OldAllocationID)
	if res.Position != nil {
		ev.PositionID = ptr(res.Position.ID)
	}
	data := map[string]any{"action": string(res.Action)}
	if res.NewAllocationID != nil {
		data["new_allocation_id"] = res.NewAllocationID.String()
	}
	if res.Replacement != nil {
		ev.BatchID = res.Replacement.BatchID
	}
	ev.Data = data
	n.publish(ctx, ev)
}

func ptr[T any](v T) *T { return &v }
