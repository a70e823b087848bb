package aggregates

// Invariant names a rule an aggregate keeps across every write.
type Invariant string

const (
	InvariantCapacity           Invariant = "position_capacity"
	InvariantSingleActive       Invariant = "single_active_allocation"
	InvariantCandidateStatus    Invariant = "candidate_status_tracks_allocation"
	InvariantTerminalAllocation Invariant = "terminal_allocation_is_final"
)

// Contract describes what an aggregate guarantees to its callers.
type Contract struct {
	Name string
	// OwnsTx is set when each write method opens and commits its own
	// transaction; callers never pass one in.
	OwnsTx     bool
	Invariants []Invariant
}

// Aggregate is implemented by every write boundary.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) Guards(inv Invariant) bool {
	for _, have := range c.Invariants {
		if have == inv {
			return true
		}
	}
	return false
}
