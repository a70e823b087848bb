package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAllocationProposed EventType = "allocation.proposed"
	EventAllocationAccepted EventType = "allocation.accepted"
	EventSlotFreed          EventType = "allocation.slot_freed"
	EventBatchCompleted     EventType = "allocation.batch_completed"
)

// Event is a committed allocation change. Candidates are referenced by
// blind id only.
type Event struct {
	ID           uuid.UUID      `json:"id"`
	Type         EventType      `json:"type"`
	BatchID      string         `json:"batch_id,omitempty"`
	AllocationID *uuid.UUID     `json:"allocation_id,omitempty"`
	PositionID   *uuid.UUID     `json:"position_id,omitempty"`
	BlindID      string         `json:"blind_id,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

func NewEvent(t EventType, at time.Time) Event {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Event{ID: uuid.New(), Type: t, OccurredAt: at}
}
