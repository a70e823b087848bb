package temporalworker

import (
	"testing"
	"time"

	"go.temporal.io/sdk/testsuite"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/temporalx"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/temporalx/slotfreed"
)

func TestNewRunner_RequiresDeps(t *testing.T) {
	if _, err := NewRunner(nil, nil, temporalx.Config{}, nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestBackoff(t *testing.T) {
	if backoff(1) != 250*time.Millisecond {
		t.Fatalf("first backoff should be 250ms, got %v", backoff(1))
	}
	if backoff(3) != time.Second {
		t.Fatalf("third backoff should be 1s, got %v", backoff(3))
	}
	if backoff(20) != 5*time.Second {
		t.Fatalf("backoff should cap at 5s, got %v", backoff(20))
	}
}

func TestRegister_WiresSlotFreed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	Register(env, &slotfreed.Activities{})
	// With no handler the activity fails; the workflow must surface it.
	env.ExecuteWorkflow(slotfreed.WorkflowName, slotfreed.Input{AllocationID: "x", InitiatedBy: "SYSTEM"})
	if !env.IsWorkflowCompleted() || env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow to complete with an error")
	}
}
