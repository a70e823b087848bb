package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies placement failures.
type ErrorCode string

const (
	// CodeValidation: malformed input. Never retried.
	CodeValidation ErrorCode = "validation"
	// CodeNotFound: allocation, position or candidate lookup miss.
	CodeNotFound ErrorCode = "not_found"
	// CodeConflict: optimistic concurrency lost on a position's counters.
	// Callers re-read and retry a bounded number of times.
	CodeConflict ErrorCode = "conflict"
	// CodeInvariantViolation: the record is in the wrong state, e.g. an
	// allocation that was already released.
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	// CodeRetryable: transient failure, or conflicts that outlived the retry budget.
	CodeRetryable ErrorCode = "retryable"
	// CodeInternal: storage failure. Nothing was committed.
	CodeInternal ErrorCode = "internal"
)

// Error carries a code through every layer from the store to the HTTP edge.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{e.Op, e.Message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return string(e.Code)
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, ": "), e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a coded error for op. cause may be nil.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap codes err, keeping it as the cause. A nil err stays nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return code != "" && CodeOf(err) == code
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// Transient reports whether retrying the whole operation may succeed.
func Transient(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeRetryable:
		return true
	default:
		return false
	}
}
