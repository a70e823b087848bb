package slotfreed

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func Workflow(ctx workflow.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.AllocationID) == "" {
		return Result{}, fmt.Errorf("slotfreed: missing allocation_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        10,
			NonRetryableErrorTypes: []string{ErrTypeValidation, ErrTypeNotFound, ErrTypeInvalidState},
		},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityHandle, in).Get(ctx, &out); err != nil {
		return Result{}, err
	}
	workflow.GetLogger(ctx).Info("Slot freed handled", "allocation_id", in.AllocationID, "action", out.Action)
	return out, nil
}
