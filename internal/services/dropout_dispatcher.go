package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/temporalx/slotfreed"
)

// DropoutDispatcher hands a slot-freed event to durable execution and
// waits for its outcome.
type DropoutDispatcher interface {
	Dispatch(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error)
}

// WorkflowStarter is satisfied by *slotfreed.Dispatcher.
type WorkflowStarter interface {
	Dispatch(ctx context.Context, in slotfreed.Input) (slotfreed.Result, error)
}

type temporalDropoutDispatcher struct {
	starter WorkflowStarter
}

func NewTemporalDropoutDispatcher(starter WorkflowStarter) DropoutDispatcher {
	if starter == nil {
		return nil
	}
	return &temporalDropoutDispatcher{starter: starter}
}

func (d *temporalDropoutDispatcher) Dispatch(ctx context.Context, allocationID uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error) {
	out, err := d.starter.Dispatch(ctx, slotfreed.Input{
		AllocationID: allocationID.String(),
		Reason:       reason,
		InitiatedBy:  string(initiator),
	})
	if err != nil {
		return allocation.ReallocationResult{}, fromWorkflowError(err)
	}
	res := allocation.ReallocationResult{
		Success:         out.Success,
		Action:          allocation.Action(out.Action),
		OldAllocationID: allocationID,
	}
	if out.NewAllocationID != "" {
		id, err := uuid.Parse(out.NewAllocationID)
		if err != nil {
			return allocation.ReallocationResult{}, fmt.Errorf("slot freed workflow returned bad allocation id: %w", err)
		}
		res.NewAllocationID = &id
	}
	return res, nil
}

// fromWorkflowError restores the domain error code carried by a
// non-retryable activity failure so callers see the same taxonomy as the
// inline path.
func fromWorkflowError(err error) error {
	const op = "AllocationService.HandleDropout"
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	switch appErr.Type() {
	case slotfreed.ErrTypeValidation:
		return domainagg.NewError(domainagg.CodeValidation, op, appErr.Message(), err)
	case slotfreed.ErrTypeNotFound:
		return domainagg.NewError(domainagg.CodeNotFound, op, appErr.Message(), err)
	case slotfreed.ErrTypeInvalidState:
		return domainagg.NewError(domainagg.CodeInvariantViolation, op, appErr.Message(), err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
