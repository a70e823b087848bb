package repos

import (
	"gorm.io/gorm"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/repos/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type OrganizationRepo = placement.OrganizationRepo
type CandidateRepo = placement.CandidateRepo
type PositionRepo = placement.PositionRepo
type AllocationRepo = placement.AllocationRepo
type DropoutEventRepo = placement.DropoutEventRepo

// Placement bundles the table repos the placement aggregate composes.
type Placement struct {
	Organizations OrganizationRepo
	Candidates    CandidateRepo
	Positions     PositionRepo
	Allocations   AllocationRepo
	Dropouts      DropoutEventRepo
}

func NewPlacement(db *gorm.DB, log *logger.Logger) Placement {
	return Placement{
		Organizations: placement.NewOrganizationRepo(db, log),
		Candidates:    placement.NewCandidateRepo(db, log),
		Positions:     placement.NewPositionRepo(db, log),
		Allocations:   placement.NewAllocationRepo(db, log),
		Dropouts:      placement.NewDropoutEventRepo(db, log),
	}
}
