package allocation

import (
	"errors"
	"testing"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
)

func TestErrorPredicates(t *testing.T) {
	conflict := domainagg.NewError(domainagg.CodeConflict, "Placement.CommitBatch", "position moved", nil)
	exhausted := raceExhausted("BatchAllocator.Run", 3, conflict)

	cases := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"validation", validationError("op", "missing id"), IsValidation, true},
		{"not found", domainagg.NewError(domainagg.CodeNotFound, "op", "gone", nil), IsNotFound, true},
		{"invalid state", domainagg.NewError(domainagg.CodeInvariantViolation, "op", "already dropped", nil), IsInvalidState, true},
		{"conflict is a race", conflict, IsCapacityRace, true},
		{"exhausted race stays a race", exhausted, IsCapacityRace, true},
		{"internal is persistence", domainagg.NewError(domainagg.CodeInternal, "op", "disk", nil), IsPersistence, true},
		{"plain error is nothing", errors.New("x"), IsPersistence, false},
		{"race is not validation", conflict, IsValidation, false},
	}
	for _, tc := range cases {
		if got := tc.pred(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
	if domainagg.CodeOf(exhausted) != domainagg.CodeRetryable {
		t.Fatalf("exhausted race should surface as retryable, got %s", domainagg.CodeOf(exhausted))
	}
	if !errors.Is(exhausted, conflict) {
		t.Fatalf("exhausted race should keep the last conflict as cause")
	}
}
