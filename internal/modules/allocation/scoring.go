package allocation

import (
	"fmt"
	"math"
	"strings"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
)

// Factor weights. They must sum to 1.0.
const (
	SkillWeight    = 0.45
	DomainWeight   = 0.20
	LocationWeight = 0.20
	GPAWeight      = 0.15
)

const (
	maxSkillLevel = 5.0
	maxGPA        = 10.0
)

// Weights is the factor weight table used by CalculateScore.
type Weights struct {
	Skills   float64 `yaml:"skills" json:"skills"`
	Domain   float64 `yaml:"domain" json:"domain"`
	Location float64 `yaml:"location" json:"location"`
	GPA      float64 `yaml:"gpa" json:"gpa"`
}

var DefaultWeights = Weights{
	Skills:   SkillWeight,
	Domain:   DomainWeight,
	Location: LocationWeight,
	GPA:      GPAWeight,
}

func (w Weights) Sum() float64 {
	return w.Skills + w.Domain + w.Location + w.GPA
}

// Validate rejects weight tables that do not sum to 1.0.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Skills, w.Domain, w.Location, w.GPA} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight outside [0,1] in %+v", w)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("weights sum to %.6f, want 1.0", w.Sum())
	}
	return nil
}

// ScoreResult is the total match score for one pair plus its explanation.
type ScoreResult struct {
	TotalScore  float64             `json:"total_score"`
	Breakdown   placement.Breakdown `json:"breakdown"`
	Explanation string              `json:"explanation"`
}

// CalculateScore scores a candidate against a position.
//
// It is pure and deterministic. Only skills, GPA and preferences are read.
func CalculateScore(c *placement.Candidate, p *placement.Position) ScoreResult {
	return DefaultWeights.score(c, p)
}

func (w Weights) score(c *placement.Candidate, p *placement.Position) ScoreResult {
	if c == nil || p == nil {
		return ScoreResult{Explanation: explain(0, false, false)}
	}
	skill := skillMatch(c.Skills, p.RequiredSkills)
	domain := domainMatch(c.PreferredDomains, p.Sector())
	location := locationMatch(c.PreferredLocations, p.Location)
	gpa := gpaFactor(c.GPA)

	total := w.Skills*skill + w.Domain*boolFactor(domain) + w.Location*boolFactor(location) + w.GPA*gpa
	return ScoreResult{
		TotalScore: clamp01(round(total, 3)),
		Breakdown: placement.Breakdown{
			SkillMatch:      round(skill, 2),
			DomainMatch:     round(boolFactor(domain), 2),
			LocationMatch:   round(boolFactor(location), 2),
			GPAContribution: round(gpa, 2),
		},
		Explanation: explain(skill, domain, location),
	}
}

// skillMatch is sum(weight * level/5) over matched required skills divided by
// sum(weight) over all required skills. A candidate skill matches when its
// name contains the required name, case-insensitively. A blank required name
// matches nothing. Validation rejects empty names before any batch.
func skillMatch(have []placement.SkillLevel, want []placement.RequiredSkill) float64 {
	var matched, total float64
	for _, req := range want {
		w := req.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		needle := strings.ToLower(strings.TrimSpace(req.Name))
		if needle == "" {
			continue
		}
		for _, s := range have {
			if !strings.Contains(strings.ToLower(s.Name), needle) {
				continue
			}
			matched += w * levelFactor(s.Level)
			break
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(matched / total)
}

func levelFactor(level int) float64 {
	if level <= 0 {
		level = 1
	}
	return math.Min(float64(level), maxSkillLevel) / maxSkillLevel
}

func domainMatch(preferred []string, sector string) bool {
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return false
	}
	for _, d := range preferred {
		if strings.EqualFold(strings.TrimSpace(d), sector) {
			return true
		}
	}
	return false
}

// locationMatch is exact. Nearby cities get no partial credit.
func locationMatch(preferred []string, location string) bool {
	for _, l := range preferred {
		if l == location {
			return true
		}
	}
	return false
}

func gpaFactor(gpa float64) float64 {
	return clamp01(gpa / maxGPA)
}

func explain(skill float64, domain, location bool) string {
	return fmt.Sprintf("Skills: %d%%, Domain: %s, Location: %s", int(math.Round(skill*100)), yesNo(domain), yesNo(location))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func boolFactor(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// round rounds half away from zero at the given number of decimals. The
// epsilon absorbs binary error so 0.9775 rounds to 0.978.
func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	if x < 0 {
		return -math.Round(-x*p+1e-9) / p
	}
	return math.Round(x*p+1e-9) / p
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
