package placement

import (
	"strings"
	"testing"
)

func TestParseInitiator(t *testing.T) {
	cases := map[string]Initiator{
		"CANDIDATE":    InitiatorCandidate,
		"student":      InitiatorCandidate,
		"ORG":          InitiatorOrganization,
		"organization": InitiatorOrganization,
		"":             InitiatorSystem,
		"system":       InitiatorSystem,
	}
	for in, want := range cases {
		got, ok := ParseInitiator(in)
		if !ok || got != want {
			t.Fatalf("ParseInitiator(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseInitiator("mentor"); ok {
		t.Fatalf("expected unknown initiator to be rejected")
	}
}

func TestInitiatorTerminalStatus(t *testing.T) {
	if InitiatorOrganization.TerminalStatus() != AllocationRejected {
		t.Fatalf("organization should reject")
	}
	if InitiatorCandidate.TerminalStatus() != AllocationDropped || InitiatorSystem.TerminalStatus() != AllocationDropped {
		t.Fatalf("candidate and system should drop")
	}
}

func TestHoldsReservation(t *testing.T) {
	if (&Allocation{Status: AllocationProposed}).HoldsReservation() {
		t.Fatalf("batch proposal should not hold a reservation")
	}
	if !(&Allocation{Status: AllocationProposed, CapacityReserved: true}).HoldsReservation() {
		t.Fatalf("reserved proposal should hold a reservation")
	}
	if !(&Allocation{Status: AllocationAccepted}).HoldsReservation() {
		t.Fatalf("accepted allocation should hold a reservation")
	}
}

func TestValidatePosition(t *testing.T) {
	p := &Position{Title: "Backend Intern", Capacity: 2, FilledCount: 3, Status: PositionOpen}
	err := ValidatePosition(p)
	if err == nil || !strings.Contains(err.Error(), "FilledCount") {
		t.Fatalf("expected filled_count > capacity to fail, got %v", err)
	}
	p.FilledCount = 2
	if err := ValidatePosition(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Capacity = 0
	p.FilledCount = 0
	if err := ValidatePosition(p); err == nil {
		t.Fatalf("expected zero capacity to fail")
	}
}

func TestValidateCandidate(t *testing.T) {
	c := &Candidate{BlindID: "STU-001", GPA: 11}
	if err := ValidateCandidate(c); err == nil {
		t.Fatalf("expected gpa above 10 to fail")
	}
	c.GPA = 8.5
	c.Skills = []SkillLevel{{Name: "", Level: 3}}
	if err := ValidateCandidate(c); err == nil {
		t.Fatalf("expected unnamed skill to fail")
	}
	c.Skills = []SkillLevel{{Name: "Go", Level: 3}}
	if err := ValidateCandidate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
