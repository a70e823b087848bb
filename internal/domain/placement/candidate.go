package placement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "PENDING"
	CandidateMatched  CandidateStatus = "MATCHED"
	CandidateAccepted CandidateStatus = "ACCEPTED"
)

// SkillLevel is a candidate skill with a proficiency from 1 to 5.
// A zero level is read as 1.
type SkillLevel struct {
	Name     string `json:"name" validate:"required"`
	Level    int    `json:"level" validate:"gte=0,lte=5"`
	Verified bool   `json:"verified,omitempty"`
}

// Candidate is an applicant profile. Name, Gender and Institution are stored
// for the profile store but never serialized and never read by scoring.
type Candidate struct {
	ID                 uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	BlindID            string                          `gorm:"column:blind_id;not null;uniqueIndex" json:"blind_id" validate:"required"`
	Name               string                          `gorm:"column:name" json:"-"`
	Gender             string                          `gorm:"column:gender" json:"-"`
	Institution        string                          `gorm:"column:institution" json:"-"`
	Skills             datatypes.JSONSlice[SkillLevel] `gorm:"column:skills" json:"skills" validate:"dive"`
	GPA                float64                         `gorm:"column:gpa;not null;default:0" json:"gpa" validate:"gte=0,lte=10"`
	PreferredLocations datatypes.JSONSlice[string]     `gorm:"column:preferred_locations" json:"preferred_locations"`
	PreferredDomains   datatypes.JSONSlice[string]     `gorm:"column:preferred_domains" json:"preferred_domains"`
	Available          bool                            `gorm:"column:available;not null;default:true;index" json:"available"`
	AllocationStatus   CandidateStatus                 `gorm:"column:allocation_status;not null;default:'PENDING';index" json:"allocation_status" validate:"omitempty,oneof=PENDING MATCHED ACCEPTED"`
	CreatedAt          time.Time                       `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time                       `gorm:"not null" json:"updated_at"`
}

func (Candidate) TableName() string { return "candidate" }

func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.AllocationStatus == "" {
		c.AllocationStatus = CandidatePending
	}
	return nil
}

// Eligible reports whether the candidate can receive a new proposal.
func (c *Candidate) Eligible() bool {
	return c != nil && c.Available && c.AllocationStatus == CandidatePending
}
