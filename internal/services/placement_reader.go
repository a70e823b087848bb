package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/repos"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
)

// PlacementReader serves the read-only queries outside the aggregate.
type PlacementReader interface {
	Candidate(ctx context.Context, id uuid.UUID) (*placement.Candidate, error)
	Position(ctx context.Context, id uuid.UUID) (*placement.Position, error)
	BatchAllocations(ctx context.Context, batchID string) ([]*placement.Allocation, error)
}

type repoReader struct {
	repos repos.Placement
}

func NewPlacementReader(r repos.Placement) PlacementReader {
	return &repoReader{repos: r}
}

func (r *repoReader) Candidate(ctx context.Context, id uuid.UUID) (*placement.Candidate, error) {
	c, err := r.repos.Candidates.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError("Placement.GetCandidate", fmt.Errorf("candidate %s: %w", id, err))
	}
	return c, nil
}

func (r *repoReader) Position(ctx context.Context, id uuid.UUID) (*placement.Position, error) {
	p, err := r.repos.Positions.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError("Placement.GetPosition", fmt.Errorf("position %s: %w", id, err))
	}
	return p, nil
}

func (r *repoReader) BatchAllocations(ctx context.Context, batchID string) ([]*placement.Allocation, error) {
	out, err := r.repos.Allocations.ListByBatchID(dbctx.Context{Ctx: ctx}, batchID)
	if err != nil {
		return nil, aggregates.MapError("Placement.ListBatch", err)
	}
	return out, nil
}
