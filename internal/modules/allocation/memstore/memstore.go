// Package memstore is an in-memory PlacementAggregate with the same
// invariants as the database-backed one. Every write is all-or-nothing.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
)

type Store struct {
	mu sync.Mutex

	orgs        map[uuid.UUID]*placement.Organization
	candidates  map[uuid.UUID]*placement.Candidate
	positions   map[uuid.UUID]*placement.Position
	allocations map[uuid.UUID]*placement.Allocation
	events      []*placement.DropoutEvent

	candidateOrder  []uuid.UUID
	positionOrder   []uuid.UUID
	allocationOrder []uuid.UUID

	// FailCommit makes the next CommitBatch fail with a storage error.
	FailCommit error
	// BeforeCommit runs before CommitBatch takes the store lock.
	BeforeCommit func()
}

var _ domainagg.PlacementAggregate = (*Store)(nil)

func New() *Store {
	return &Store{
		orgs:        map[uuid.UUID]*placement.Organization{},
		candidates:  map[uuid.UUID]*placement.Candidate{},
		positions:   map[uuid.UUID]*placement.Position{},
		allocations: map[uuid.UUID]*placement.Allocation{},
	}
}

func (s *Store) Contract() domainagg.Contract { return domainagg.PlacementAggregateContract }

func (s *Store) AddOrganization(o *placement.Organization) *placement.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	s.orgs[o.ID] = &cp
	return o
}

func (s *Store) AddCandidate(c *placement.Candidate) *placement.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.AllocationStatus == "" {
		c.AllocationStatus = placement.CandidatePending
	}
	if _, ok := s.candidates[c.ID]; !ok {
		s.candidateOrder = append(s.candidateOrder, c.ID)
	}
	s.candidates[c.ID] = cloneCandidate(c)
	return c
}

func (s *Store) AddPosition(p *placement.Position) *placement.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = placement.PositionOpen
	}
	if p.Org != nil {
		if p.Org.ID == uuid.Nil {
			p.Org.ID = uuid.New()
		}
		p.OrgID = p.Org.ID
		org := *p.Org
		s.orgs[org.ID] = &org
	}
	if _, ok := s.positions[p.ID]; !ok {
		s.positionOrder = append(s.positionOrder, p.ID)
	}
	s.positions[p.ID] = clonePosition(p)
	return p
}

// AddAllocation seeds an allocation as-is, without touching counters.
func (s *Store) AddAllocation(a *placement.Allocation) *placement.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if _, ok := s.allocations[a.ID]; !ok {
		s.allocationOrder = append(s.allocationOrder, a.ID)
	}
	cp := *a
	s.allocations[a.ID] = &cp
	return a
}

func (s *Store) Candidate(id uuid.UUID) *placement.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.candidates[id]; ok {
		return cloneCandidate(c)
	}
	return nil
}

func (s *Store) Position(id uuid.UUID) *placement.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.positions[id]; ok {
		return s.positionView(p)
	}
	return nil
}

func (s *Store) Allocation(id uuid.UUID) *placement.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.allocations[id]; ok {
		cp := *a
		return &cp
	}
	return nil
}

// Allocations returns every allocation in insertion order.
func (s *Store) Allocations() []*placement.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*placement.Allocation, 0, len(s.allocationOrder))
	for _, id := range s.allocationOrder {
		cp := *s.allocations[id]
		out = append(out, &cp)
	}
	return out
}

func (s *Store) DropoutEvents() []*placement.DropoutEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*placement.DropoutEvent, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

func (s *Store) LoadPool(ctx context.Context) (domainagg.PoolSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := domainagg.PoolSnapshot{ReadAt: time.Now().UTC()}
	for _, id := range s.candidateOrder {
		c := s.candidates[id]
		if c.Eligible() {
			snap.Candidates = append(snap.Candidates, cloneCandidate(c))
		}
	}
	for _, id := range s.positionOrder {
		p := s.positions[id]
		if p.Status != placement.PositionOpen {
			continue
		}
		snap.Positions = append(snap.Positions, domainagg.PositionSlot{
			Position: s.positionView(p),
			InUse:    p.FilledCount + s.unreservedProposals(p.ID, uuid.Nil),
		})
	}
	return snap, nil
}

func (s *Store) GetAllocation(ctx context.Context, id uuid.UUID) (*placement.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[id]
	if !ok {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "Placement.GetAllocation", fmt.Sprintf("allocation not found: %s", id), nil)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetCandidate(ctx context.Context, id uuid.UUID) (*placement.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "Placement.GetCandidate", fmt.Sprintf("candidate not found: %s", id), nil)
	}
	return cloneCandidate(c), nil
}

func (s *Store) CommitBatch(ctx context.Context, in domainagg.CommitBatchInput) (domainagg.CommitBatchResult, error) {
	const op = "Placement.CommitBatch"
	var out domainagg.CommitBatchResult
	if in.BatchID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing batch_id", nil)
	}
	if s.BeforeCommit != nil {
		s.BeforeCommit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCommit != nil {
		err := s.FailCommit
		s.FailCommit = nil
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	perPosition := map[uuid.UUID]int{}
	seen := map[uuid.UUID]bool{}
	for _, a := range in.Allocations {
		if a == nil || a.CandidateID == uuid.Nil || a.PositionID == uuid.Nil {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "allocation missing candidate or position", nil)
		}
		if a.Status != placement.AllocationProposed || a.CapacityReserved {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "batch allocations must be unreserved proposals", nil)
		}
		if seen[a.CandidateID] {
			return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("candidate %s allocated twice", a.CandidateID), nil)
		}
		seen[a.CandidateID] = true
		perPosition[a.PositionID]++
	}

	for pid, n := range perPosition {
		p, ok := s.positions[pid]
		if !ok {
			return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("position not found: %s", pid), nil)
		}
		want, ok := in.PositionVersions[pid]
		if !ok || p.Version != want {
			return out, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("position %s changed since snapshot", pid), nil)
		}
		if p.Status != placement.PositionOpen {
			return out, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("position %s is closed", pid), nil)
		}
		if p.FilledCount+s.unreservedProposals(pid, uuid.Nil)+n > p.Capacity {
			return out, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("position %s over capacity", pid), nil)
		}
	}
	for cid := range seen {
		c, ok := s.candidates[cid]
		if !ok {
			return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("candidate not found: %s", cid), nil)
		}
		if !c.Eligible() || s.hasActive(cid) {
			return out, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("candidate %s no longer pending", cid), nil)
		}
	}

	committedAt := in.CommittedAt
	if committedAt.IsZero() {
		committedAt = time.Now().UTC()
	}
	for _, a := range in.Allocations {
		cp := *a
		if cp.ID == uuid.Nil {
			cp.ID = uuid.New()
		}
		cp.BatchID = in.BatchID
		s.allocations[cp.ID] = &cp
		s.allocationOrder = append(s.allocationOrder, cp.ID)
		a.ID = cp.ID
		out.AllocationIDs = append(out.AllocationIDs, cp.ID)

		c := s.candidates[cp.CandidateID]
		c.AllocationStatus = placement.CandidateMatched
		c.UpdatedAt = committedAt
	}
	for pid := range perPosition {
		p := s.positions[pid]
		p.Version++
		p.UpdatedAt = committedAt
	}
	out.BatchID = in.BatchID
	out.CandidatesMatched = len(seen)
	return out, nil
}

func (s *Store) ReleaseSlot(ctx context.Context, in domainagg.ReleaseSlotInput) (domainagg.ReleaseSlotResult, error) {
	const op = "Placement.ReleaseSlot"
	var out domainagg.ReleaseSlotResult
	if in.AllocationID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing allocation_id", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.allocations[in.AllocationID]
	if !ok {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("allocation not found: %s", in.AllocationID), nil)
	}
	if !cur.Status.Active() {
		return out, domainagg.NewError(domainagg.CodeInvariantViolation, op, fmt.Sprintf("allocation %s already %s", cur.ID, cur.Status), nil)
	}
	pos, ok := s.positions[cur.PositionID]
	if !ok {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("position not found: %s", cur.PositionID), nil)
	}
	cand, ok := s.candidates[cur.CandidateID]
	if !ok {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("candidate not found: %s", cur.CandidateID), nil)
	}

	at := in.ReleasedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	// Stage every change on copies and apply them together at the end.
	released := *cur
	released.Status = in.InitiatedBy.TerminalStatus()
	released.UpdatedAt = at

	vacated := cloneCandidate(cand)
	vacated.AllocationStatus = placement.CandidatePending
	vacated.UpdatedAt = at

	position := clonePosition(pos)
	if cur.HoldsReservation() && position.FilledCount > 0 {
		position.FilledCount--
	}

	var (
		replacement *placement.Allocation
		replaced    *placement.Candidate
	)
	if position.Status == placement.PositionOpen && len(in.Ranked) > 0 &&
		position.FilledCount+s.unreservedProposals(position.ID, cur.ID) < position.Capacity {
		for _, r := range in.Ranked {
			c, ok := s.candidates[r.CandidateID]
			if r.CandidateID == vacated.ID {
				c = vacated
			} else if !ok || s.hasActive(r.CandidateID) {
				continue
			}
			if !c.Eligible() {
				continue
			}
			replaced = cloneCandidate(c)
			replaced.AllocationStatus = placement.CandidateMatched
			replaced.UpdatedAt = at
			replacement = &placement.Allocation{
				ID:               uuid.New(),
				BatchID:          in.ReplacementBatchID,
				CandidateID:      r.CandidateID,
				PositionID:       position.ID,
				Score:            r.Score,
				Breakdown:        datatypes.NewJSONType(r.Breakdown),
				Explanation:      r.Explanation,
				Status:           placement.AllocationProposed,
				CapacityReserved: true,
				CreatedAt:        at,
				UpdatedAt:        at,
			}
			position.FilledCount++
			break
		}
	}
	position.Version++
	position.UpdatedAt = at

	event := &placement.DropoutEvent{
		ID:               uuid.New(),
		CandidateID:      cur.CandidateID,
		PositionID:       cur.PositionID,
		AllocationID:     cur.ID,
		Reason:           in.Reason,
		InitiatedBy:      in.InitiatedBy,
		ReplacementFound: replacement != nil,
		CreatedAt:        at,
	}

	s.allocations[released.ID] = &released
	s.candidates[vacated.ID] = vacated
	s.positions[position.ID] = position
	if replacement != nil {
		rid := replacement.ID
		event.ReplacementAllocationID = &rid
		s.allocations[replacement.ID] = replacement
		s.allocationOrder = append(s.allocationOrder, replacement.ID)
		s.candidates[replaced.ID] = replaced
		rc := *replacement
		out.Replacement = &rc
	}
	s.events = append(s.events, event)

	rel := released
	ev := *event
	out.Released = &rel
	out.Position = s.positionView(position)
	out.Event = &ev
	return out, nil
}

func (s *Store) AcceptAllocation(ctx context.Context, in domainagg.AcceptAllocationInput) (domainagg.AcceptAllocationResult, error) {
	const op = "Placement.AcceptAllocation"
	var out domainagg.AcceptAllocationResult

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.allocations[in.AllocationID]
	if !ok {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("allocation not found: %s", in.AllocationID), nil)
	}
	pos := s.positions[cur.PositionID]
	if cur.Status == placement.AllocationAccepted {
		cp := *cur
		out.Allocation = &cp
		out.Position = s.positionView(pos)
		return out, nil
	}
	if cur.Status != placement.AllocationProposed {
		return out, domainagg.NewError(domainagg.CodeInvariantViolation, op, fmt.Sprintf("allocation %s is %s", cur.ID, cur.Status), nil)
	}
	if !cur.CapacityReserved && pos.FilledCount >= pos.Capacity {
		return out, domainagg.NewError(domainagg.CodeInvariantViolation, op, fmt.Sprintf("position %s is full", pos.ID), nil)
	}

	at := in.AcceptedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if !cur.CapacityReserved {
		pos.FilledCount++
	}
	pos.Version++
	pos.UpdatedAt = at
	cur.Status = placement.AllocationAccepted
	cur.CapacityReserved = true
	cur.UpdatedAt = at
	if c, ok := s.candidates[cur.CandidateID]; ok {
		c.AllocationStatus = placement.CandidateAccepted
		c.UpdatedAt = at
	}

	cp := *cur
	out.Allocation = &cp
	out.Position = s.positionView(pos)
	return out, nil
}

// unreservedProposals counts PROPOSED allocations on a position that are not
// yet in FilledCount, ignoring skip.
func (s *Store) unreservedProposals(positionID, skip uuid.UUID) int {
	n := 0
	for id, a := range s.allocations {
		if id == skip || a.PositionID != positionID {
			continue
		}
		if a.Status == placement.AllocationProposed && !a.CapacityReserved {
			n++
		}
	}
	return n
}

func (s *Store) hasActive(candidateID uuid.UUID) bool {
	for _, a := range s.allocations {
		if a.CandidateID == candidateID && a.Status.Active() {
			return true
		}
	}
	return false
}

func (s *Store) positionView(p *placement.Position) *placement.Position {
	cp := clonePosition(p)
	if org, ok := s.orgs[p.OrgID]; ok {
		o := *org
		cp.Org = &o
	}
	return cp
}

func cloneCandidate(c *placement.Candidate) *placement.Candidate {
	cp := *c
	cp.Skills = slices.Clone(c.Skills)
	cp.PreferredLocations = slices.Clone(c.PreferredLocations)
	cp.PreferredDomains = slices.Clone(c.PreferredDomains)
	return &cp
}

func clonePosition(p *placement.Position) *placement.Position {
	cp := *p
	cp.RequiredSkills = slices.Clone(p.RequiredSkills)
	cp.Org = nil
	return &cp
}
