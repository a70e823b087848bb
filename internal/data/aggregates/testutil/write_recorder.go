package testutil

import (
	"sync"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/aggregates"
)

// WriteRecorder keeps every aggregate write outcome for assertions.
type WriteRecorder struct {
	mu       sync.Mutex
	outcomes []aggregates.WriteOutcome
}

var _ aggregates.WriteObserver = (*WriteRecorder)(nil)

func (r *WriteRecorder) ObserveWrite(o aggregates.WriteOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *WriteRecorder) Outcomes() []aggregates.WriteOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]aggregates.WriteOutcome(nil), r.outcomes...)
}

// LastCode returns the code of the latest write of op, or "" if none ran.
func (r *WriteRecorder) LastCode(op string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.outcomes) - 1; i >= 0; i-- {
		if r.outcomes[i].Op == op {
			return r.outcomes[i].Code
		}
	}
	return ""
}

// Conflicts counts writes that lost to a concurrent writer.
func (r *WriteRecorder) Conflicts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.outcomes {
		if o.Conflict() {
			n++
		}
	}
	return n
}
