package allocation

import (
	"github.com/google/uuid"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
)

func techOrg() *placement.Organization {
	return &placement.Organization{ID: uuid.New(), Name: "Acme Labs", Sector: "Technology"}
}

// scenarioCandidate is the profile used by the worked scoring examples.
func scenarioCandidate() *placement.Candidate {
	return &placement.Candidate{
		ID:                 uuid.New(),
		BlindID:            "STU-001",
		Name:               "should never be read",
		Gender:             "should never be read",
		Institution:        "should never be read",
		Skills:             []placement.SkillLevel{{Name: "Python", Level: 5}, {Name: "React", Level: 4}},
		GPA:                8.5,
		PreferredLocations: []string{"Mumbai"},
		PreferredDomains:   []string{"Technology"},
		Available:          true,
		AllocationStatus:   placement.CandidatePending,
	}
}

func scenarioPosition(skills ...placement.RequiredSkill) *placement.Position {
	org := techOrg()
	return &placement.Position{
		ID:             uuid.New(),
		OrgID:          org.ID,
		Org:            org,
		Title:          "Full-stack Intern",
		RequiredSkills: skills,
		MinGPA:         7,
		Location:       "Mumbai",
		Capacity:       1,
		Status:         placement.PositionOpen,
	}
}

func candidate(blind string, gpa float64, skills ...placement.SkillLevel) *placement.Candidate {
	return &placement.Candidate{
		ID:                 uuid.New(),
		BlindID:            blind,
		Skills:             skills,
		GPA:                gpa,
		PreferredLocations: []string{"Mumbai"},
		PreferredDomains:   []string{"Technology"},
		Available:          true,
		AllocationStatus:   placement.CandidatePending,
	}
}

func position(title string, capacity int, minGPA float64, skills ...placement.RequiredSkill) *placement.Position {
	p := scenarioPosition(skills...)
	p.Title = title
	p.Capacity = capacity
	p.MinGPA = minGPA
	return p
}
