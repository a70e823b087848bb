package placement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// RequiredSkill is a skill a position asks for. A zero weight is read as 1.
type RequiredSkill struct {
	Name   string  `json:"name" validate:"required"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

// Position is an internship with a vacancy capacity.
//
// FilledCount counts reserved seats: accepted allocations plus proposals made
// by reallocation. Version increments on every capacity-affecting write.
type Position struct {
	ID             uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID          uuid.UUID                          `gorm:"type:uuid;column:org_id;not null;index" json:"org_id"`
	Org            *Organization                      `gorm:"foreignKey:OrgID" json:"org,omitempty"`
	Title          string                             `gorm:"column:title;not null" json:"title" validate:"required"`
	RequiredSkills datatypes.JSONSlice[RequiredSkill] `gorm:"column:required_skills" json:"required_skills" validate:"dive"`
	MinGPA         float64                            `gorm:"column:min_gpa;not null;default:0" json:"min_gpa" validate:"gte=0,lte=10"`
	Location       string                             `gorm:"column:location" json:"location"`
	Capacity       int                                `gorm:"column:capacity;not null;default:1" json:"capacity" validate:"gte=1"`
	FilledCount    int                                `gorm:"column:filled_count;not null;default:0" json:"filled_count" validate:"gte=0,ltefield=Capacity"`
	Status         PositionStatus                     `gorm:"column:status;not null;default:'OPEN';index" json:"status" validate:"omitempty,oneof=OPEN CLOSED"`
	Version        int                                `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt      time.Time                          `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time                          `gorm:"not null" json:"updated_at"`
}

func (Position) TableName() string { return "position" }

func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PositionOpen
	}
	return nil
}

// Sector is the owning organization's sector, or "" when not loaded.
func (p *Position) Sector() string {
	if p == nil || p.Org == nil {
		return ""
	}
	return p.Org.Sector
}
