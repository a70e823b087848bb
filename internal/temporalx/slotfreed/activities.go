package slotfreed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// Handler is the slot-freed entry point the activity drives.
type Handler interface {
	HandleSlotFreed(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error)
}

type Activities struct {
	Log     *logger.Logger
	Handler Handler
}

func (a *Activities) Handle(ctx context.Context, in Input) (Result, error) {
	if a == nil || a.Handler == nil {
		return Result{}, fmt.Errorf("slotfreed: activity not configured")
	}
	id, err := uuid.Parse(in.AllocationID)
	if err != nil || id == uuid.Nil {
		return Result{}, temporal.NewNonRetryableApplicationError("invalid allocation_id", ErrTypeValidation, err)
	}
	initiator, ok := placement.ParseInitiator(in.InitiatedBy)
	if !ok {
		return Result{}, temporal.NewNonRetryableApplicationError("invalid initiated_by: "+in.InitiatedBy, ErrTypeValidation, nil)
	}

	info := activity.GetInfo(ctx)
	res, err := a.Handler.HandleSlotFreed(ctx, id, in.Reason, initiator)
	if err != nil {
		if errType := nonRetryableType(err); errType != "" {
			return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
		}
		if a.Log != nil {
			a.Log.Warn("Slot freed activity failed; will retry",
				"allocation_id", in.AllocationID, "attempt", info.Attempt, "error", err)
		}
		return Result{}, err
	}

	out := Result{Success: res.Success, Action: string(res.Action), OldAllocationID: res.OldAllocationID.String()}
	if res.NewAllocationID != nil {
		out.NewAllocationID = res.NewAllocationID.String()
	}
	return out, nil
}

func nonRetryableType(err error) string {
	switch {
	case allocation.IsValidation(err):
		return ErrTypeValidation
	case allocation.IsNotFound(err):
		return ErrTypeNotFound
	case allocation.IsInvalidState(err):
		return ErrTypeInvalidState
	default:
		return ""
	}
}
