package slotfreed

const (
	WorkflowName   = "slot_freed"
	ActivityHandle = "slot_freed_handle"
)

// Error types the activity marks non-retryable. Retrying them cannot
// change the outcome.
const (
	ErrTypeValidation   = "ValidationError"
	ErrTypeNotFound     = "NotFoundError"
	ErrTypeInvalidState = "InvalidStateError"
)

type Input struct {
	AllocationID string `json:"allocation_id"`
	Reason       string `json:"reason"`
	InitiatedBy  string `json:"initiated_by"`
}

type Result struct {
	Success         bool   `json:"success"`
	Action          string `json:"action"`
	OldAllocationID string `json:"old_allocation_id"`
	NewAllocationID string `json:"new_allocation_id,omitempty"`
}

// WorkflowID makes repeated dispatches for one allocation collapse onto
// one execution.
func WorkflowID(allocationID string) string { return "slot-freed-" + allocationID }
