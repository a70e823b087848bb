package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
)

func SeedOrganization(tb testing.TB, ctx context.Context, tx *gorm.DB, sector string) *types.Organization {
	tb.Helper()
	o := &types.Organization{ID: uuid.New(), Name: "Org " + sector, Sector: sector}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return o
}

// SeedCandidate stores a PENDING, available candidate preferring Mumbai and
// the Technology domain.
func SeedCandidate(tb testing.TB, ctx context.Context, tx *gorm.DB, gpa float64, skills ...types.SkillLevel) *types.Candidate {
	tb.Helper()
	id := uuid.New()
	c := &types.Candidate{
		ID:                 id,
		BlindID:            fmt.Sprintf("STU-%s", id.String()[:8]),
		Skills:             skills,
		GPA:                gpa,
		PreferredLocations: []string{"Mumbai"},
		PreferredDomains:   []string{"Technology"},
		Available:          true,
		AllocationStatus:   types.CandidatePending,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed candidate: %v", err)
	}
	return c
}

// SeedPosition stores an OPEN Mumbai position owned by org.
func SeedPosition(tb testing.TB, ctx context.Context, tx *gorm.DB, org *types.Organization, capacity int, minGPA float64, skills ...types.RequiredSkill) *types.Position {
	tb.Helper()
	p := &types.Position{
		ID:             uuid.New(),
		OrgID:          org.ID,
		Title:          "Intern",
		RequiredSkills: skills,
		MinGPA:         minGPA,
		Location:       "Mumbai",
		Capacity:       capacity,
		Status:         types.PositionOpen,
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		tb.Fatalf("seed position: %v", err)
	}
	p.Org = org
	return p
}

func SeedAllocation(tb testing.TB, ctx context.Context, tx *gorm.DB, a *types.Allocation) *types.Allocation {
	tb.Helper()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.BatchID == "" {
		a.BatchID = "MATCH-seed"
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed allocation: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
