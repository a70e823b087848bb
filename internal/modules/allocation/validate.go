package allocation

import (
	"fmt"

	"github.com/google/uuid"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
)

// ValidateRecords checks input records before anything is scored. The first
// malformed record fails the call with CodeValidation.
func ValidateRecords(op string, candidates []*placement.Candidate, positions []*placement.Position) error {
	for _, p := range positions {
		if err := placement.ValidatePosition(p); err != nil {
			var id uuid.UUID
			if p != nil {
				id = p.ID
			}
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("position %s: %v", id, err), err)
		}
	}
	for _, c := range candidates {
		if err := placement.ValidateCandidate(c); err != nil {
			var id uuid.UUID
			if c != nil {
				id = c.ID
			}
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("candidate %s: %v", id, err), err)
		}
	}
	return nil
}
