package placement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AllocationStatus string

const (
	AllocationProposed AllocationStatus = "PROPOSED"
	AllocationAccepted AllocationStatus = "ACCEPTED"
	AllocationRejected AllocationStatus = "REJECTED"
	AllocationDropped  AllocationStatus = "DROPPED"
)

// Active reports whether the status holds a candidate.
func (s AllocationStatus) Active() bool {
	return s == AllocationProposed || s == AllocationAccepted
}

func (s AllocationStatus) Terminal() bool {
	return s == AllocationRejected || s == AllocationDropped
}

// Breakdown holds the rounded per-factor sub-scores behind a total.
type Breakdown struct {
	SkillMatch      float64  `json:"skill_match"`
	DomainMatch     float64  `json:"domain_match"`
	LocationMatch   float64  `json:"location_match"`
	GPAContribution float64  `json:"gpa_contribution"`
	MLPrediction    *float64 `json:"ml_prediction,omitempty"`
	MLConfidence    *float64 `json:"ml_confidence,omitempty"`
}

type Allocation struct {
	ID          uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID     string                        `gorm:"column:batch_id;not null;index" json:"batch_id"`
	CandidateID uuid.UUID                     `gorm:"type:uuid;column:candidate_id;not null;index" json:"candidate_id"`
	PositionID  uuid.UUID                     `gorm:"type:uuid;column:position_id;not null;index" json:"position_id"`
	Score       float64                       `gorm:"column:score;not null" json:"score"`
	Breakdown   datatypes.JSONType[Breakdown] `gorm:"column:breakdown" json:"breakdown"`
	Explanation string                        `gorm:"column:explanation" json:"explanation"`
	Status      AllocationStatus              `gorm:"column:status;not null;index" json:"status"`
	// CapacityReserved is set once the allocation is counted in the
	// position's FilledCount.
	CapacityReserved bool      `gorm:"column:capacity_reserved;not null;default:false" json:"capacity_reserved"`
	CreatedAt        time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (Allocation) TableName() string { return "allocation" }

func (a *Allocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// HoldsReservation reports whether releasing a gives a seat back to FilledCount.
func (a *Allocation) HoldsReservation() bool {
	return a.Status == AllocationAccepted || (a.Status == AllocationProposed && a.CapacityReserved)
}
