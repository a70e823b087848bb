package placement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Initiator string

const (
	InitiatorCandidate    Initiator = "CANDIDATE"
	InitiatorOrganization Initiator = "ORGANIZATION"
	InitiatorSystem       Initiator = "SYSTEM"
)

// ParseInitiator accepts the canonical names and the STUDENT/ORG aliases.
func ParseInitiator(s string) (Initiator, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CANDIDATE", "STUDENT":
		return InitiatorCandidate, true
	case "ORGANIZATION", "ORG":
		return InitiatorOrganization, true
	case "SYSTEM", "":
		return InitiatorSystem, true
	default:
		return "", false
	}
}

// TerminalStatus is the status a released allocation ends in.
// Organizations reject; candidates and the system drop.
func (i Initiator) TerminalStatus() AllocationStatus {
	if i == InitiatorOrganization {
		return AllocationRejected
	}
	return AllocationDropped
}

// DropoutEvent is an append-only audit record of a freed slot.
type DropoutEvent struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID             uuid.UUID  `gorm:"type:uuid;column:candidate_id;not null;index" json:"candidate_id"`
	PositionID              uuid.UUID  `gorm:"type:uuid;column:position_id;not null;index" json:"position_id"`
	AllocationID            uuid.UUID  `gorm:"type:uuid;column:allocation_id;not null;uniqueIndex" json:"allocation_id"`
	Reason                  string     `gorm:"column:reason" json:"reason"`
	InitiatedBy             Initiator  `gorm:"column:initiated_by;not null" json:"initiated_by"`
	ReplacementFound        bool       `gorm:"column:replacement_found;not null;default:false" json:"replacement_found"`
	ReplacementAllocationID *uuid.UUID `gorm:"type:uuid;column:replacement_allocation_id" json:"replacement_allocation_id,omitempty"`
	CreatedAt               time.Time  `gorm:"not null;index" json:"created_at"`
}

func (DropoutEvent) TableName() string { return "dropout_event" }

func (d *DropoutEvent) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
