package domain

import "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"

type Candidate = placement.Candidate
type CandidateStatus = placement.CandidateStatus
type SkillLevel = placement.SkillLevel
type Organization = placement.Organization
type Position = placement.Position
type PositionStatus = placement.PositionStatus
type RequiredSkill = placement.RequiredSkill
type Allocation = placement.Allocation
type AllocationStatus = placement.AllocationStatus
type Breakdown = placement.Breakdown
type DropoutEvent = placement.DropoutEvent
type Initiator = placement.Initiator

const (
	CandidatePending  = placement.CandidatePending
	CandidateMatched  = placement.CandidateMatched
	CandidateAccepted = placement.CandidateAccepted

	PositionOpen   = placement.PositionOpen
	PositionClosed = placement.PositionClosed

	AllocationProposed = placement.AllocationProposed
	AllocationAccepted = placement.AllocationAccepted
	AllocationRejected = placement.AllocationRejected
	AllocationDropped  = placement.AllocationDropped

	InitiatorCandidate    = placement.InitiatorCandidate
	InitiatorOrganization = placement.InitiatorOrganization
	InitiatorSystem       = placement.InitiatorSystem
)
