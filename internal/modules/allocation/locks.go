package allocation

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

const batchLockKey = "allocation:batch"

// PositionLocker serializes work on a key across callers. The returned
// unlock is safe to call more than once.
type PositionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func PositionLockKey(id uuid.UUID) string { return "allocation:position:" + id.String() }

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[string]*localLock{}}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ll, ok := l.locks[key]
	if !ok {
		ll = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = ll
	}
	ll.refs++
	l.mu.Unlock()

	select {
	case ll.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, ll)
		return func() {}, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ll.ch
			l.release(key, ll)
		})
	}, nil
}

func (l *LocalLocker) release(key string, ll *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ll.refs--
	if ll.refs == 0 {
		delete(l.locks, key)
	}
}

// lockPositions takes the position locks in ascending id order.
func lockPositions(ctx context.Context, locker PositionLocker, ids []uuid.UUID) (func(), error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return compareUUID(a, b) })
	sorted = slices.Compact(sorted)

	unlocks := make([]func(), 0, len(sorted))
	unlockAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, id := range sorted {
		unlock, err := locker.Lock(ctx, PositionLockKey(id))
		if err != nil {
			unlockAll()
			return func() {}, err
		}
		unlocks = append(unlocks, unlock)
	}
	return unlockAll, nil
}

func compareUUID(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }
