package allocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalLocker_Serializes(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()
	key := PositionLockKey(uuid.New())

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, key)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Fatalf("expected lock table to drain, has %d entries", len(l.locks))
	}
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); err == nil {
		t.Fatalf("expected context error while key is held")
	}
	unlock()
	if _, err := l.Lock(context.Background(), "k"); err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
}

func TestLockPositions_Dedupes(t *testing.T) {
	l := NewLocalLocker()
	id := uuid.New()
	unlock, err := lockPositions(context.Background(), l, []uuid.UUID{id, uuid.New(), id})
	if err != nil {
		t.Fatalf("lockPositions: %v", err)
	}
	if len(l.locks) != 2 {
		t.Fatalf("expected 2 held keys, got %d", len(l.locks))
	}
	unlock()
	if len(l.locks) != 0 {
		t.Fatalf("expected all keys released")
	}
}
