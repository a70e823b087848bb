package slotfreed

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Dispatcher starts slot-freed workflows and waits for their result.
type Dispatcher struct {
	Client    temporalsdkclient.Client
	TaskQueue string
}

// Dispatch runs the workflow for in and blocks until it completes. A second
// dispatch for the same allocation attaches to the running execution.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (Result, error) {
	if d == nil || d.Client == nil {
		return Result{}, fmt.Errorf("slotfreed: temporal client not configured")
	}
	run, err := d.Client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(in.AllocationID),
		TaskQueue:                d.TaskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, WorkflowName, in)
	if err != nil {
		return Result{}, fmt.Errorf("start slot freed workflow: %w", err)
	}
	var out Result
	if err := run.Get(ctx, &out); err != nil {
		return Result{}, err
	}
	return out, nil
}
