package allocation

import (
	"errors"
	"fmt"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
)

// ErrCapacityRace marks failures caused by losing a race on a position's counters.
var ErrCapacityRace = errors.New("capacity race")

func IsValidation(err error) bool { return domainagg.IsCode(err, domainagg.CodeValidation) }

func IsNotFound(err error) bool { return domainagg.IsCode(err, domainagg.CodeNotFound) }

// IsInvalidState reports reprocessing of a record that already left the
// required state, such as releasing an allocation twice.
func IsInvalidState(err error) bool {
	return domainagg.IsCode(err, domainagg.CodeInvariantViolation)
}

func IsCapacityRace(err error) bool {
	return domainagg.IsCode(err, domainagg.CodeConflict) || errors.Is(err, ErrCapacityRace)
}

func IsPersistence(err error) bool {
	switch domainagg.CodeOf(err) {
	case domainagg.CodeInternal, domainagg.CodePreconditionFailed:
		return true
	default:
		return false
	}
}

func validationError(op, msg string) error {
	return domainagg.NewError(domainagg.CodeValidation, op, msg, nil)
}

func raceExhausted(op string, attempts int, last error) error {
	return domainagg.NewError(
		domainagg.CodeRetryable,
		op,
		fmt.Sprintf("capacity race persisted after %d attempts", attempts),
		errors.Join(ErrCapacityRace, last),
	)
}
