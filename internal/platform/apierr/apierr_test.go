package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
)

func TestFromError(t *testing.T) {
	cases := map[domainagg.ErrorCode]int{
		domainagg.CodeValidation:         http.StatusBadRequest,
		domainagg.CodeNotFound:           http.StatusNotFound,
		domainagg.CodeInvariantViolation: http.StatusConflict,
		domainagg.CodeConflict:           http.StatusServiceUnavailable,
		domainagg.CodeRetryable:          http.StatusServiceUnavailable,
		domainagg.CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		err := fmt.Errorf("wrapped: %w", domainagg.NewError(code, "op", "msg", nil))
		got := FromError(err)
		if got.Status != status {
			t.Fatalf("%s: want %d got %d", code, status, got.Status)
		}
	}
	if got := FromError(errors.New("plain")); got.Status != http.StatusInternalServerError || got.Code != "internal" {
		t.Fatalf("plain error should be internal, got %+v", got)
	}
	pre := New(http.StatusTeapot, "teapot", nil)
	if FromError(pre) != pre {
		t.Fatalf("api errors pass through")
	}
	if FromError(nil) != nil {
		t.Fatalf("nil maps to nil")
	}
}
