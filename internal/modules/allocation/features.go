package allocation

import (
	"strings"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
)

// Features is the numeric view of a pair sent to an external predictor.
type Features struct {
	SkillOverlapCount int     `json:"skill_overlap_count"`
	SkillOverlapRatio float64 `json:"skill_overlap_ratio"`
	AvgSkillLevel     float64 `json:"avg_skill_level"`
	MaxSkillLevel     int     `json:"max_skill_level"`
	GPA               float64 `json:"gpa"`
	DomainMatch       bool    `json:"domain_match"`
	LocationMatch     bool    `json:"location_match"`
	TotalSkills       int     `json:"total_skills"`
	VerifiedSkills    int     `json:"verified_skills"`
}

// ExtractFeatures compares skill names exactly (case-insensitive), unlike
// scoring which uses substring matches.
func ExtractFeatures(c *placement.Candidate, p *placement.Position) Features {
	var f Features
	if c == nil || p == nil {
		return f
	}
	levels := make(map[string]int, len(c.Skills))
	for _, s := range c.Skills {
		levels[strings.ToLower(strings.TrimSpace(s.Name))] = s.Level
		if s.Verified {
			f.VerifiedSkills++
		}
	}
	sum := 0
	for _, req := range p.RequiredSkills {
		lvl, ok := levels[strings.ToLower(strings.TrimSpace(req.Name))]
		if !ok {
			continue
		}
		f.SkillOverlapCount++
		sum += lvl
		if lvl > f.MaxSkillLevel {
			f.MaxSkillLevel = lvl
		}
	}
	if n := len(p.RequiredSkills); n > 0 {
		f.SkillOverlapRatio = float64(f.SkillOverlapCount) / float64(n)
	}
	if f.SkillOverlapCount > 0 {
		f.AvgSkillLevel = float64(sum) / float64(f.SkillOverlapCount)
	}
	f.GPA = c.GPA
	f.DomainMatch = domainMatch(c.PreferredDomains, p.Sector())
	f.LocationMatch = locationMatch(c.PreferredLocations, p.Location)
	f.TotalSkills = len(c.Skills)
	return f
}
