package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ALLOC_TEST_INT", "7")
	if got := Int("ALLOC_TEST_INT", 3, nil); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	t.Setenv("ALLOC_TEST_INT", "seven")
	if got := Int("ALLOC_TEST_INT", 3, nil); got != 3 {
		t.Fatalf("expected default 3, got %d", got)
	}
	if got := Int("ALLOC_TEST_INT_MISSING", 9, nil); got != 9 {
		t.Fatalf("expected default 9, got %d", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("ALLOC_TEST_DUR", "90s")
	if got := Duration("ALLOC_TEST_DUR", time.Second, nil); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	t.Setenv("ALLOC_TEST_DUR", "15")
	if got := Duration("ALLOC_TEST_DUR", time.Second, nil); got != 15*time.Second {
		t.Fatalf("expected 15s, got %s", got)
	}
}

func TestBoolAndFloat(t *testing.T) {
	t.Setenv("ALLOC_TEST_BOOL", "off")
	if Bool("ALLOC_TEST_BOOL", true, nil) {
		t.Fatalf("expected false")
	}
	t.Setenv("ALLOC_TEST_FLOAT", "0.6")
	if got := Float("ALLOC_TEST_FLOAT", 0, nil); got != 0.6 {
		t.Fatalf("expected 0.6, got %v", got)
	}
}
