package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/realtime"
)

// LocalBus delivers events to forwarders in the same process. Publish
// never blocks on a slow subscriber; events beyond the buffer are dropped
// with a warning.
type LocalBus struct {
	log *logger.Logger

	mu     sync.RWMutex
	subs   map[int]chan realtime.Event
	nextID int
	closed bool
}

const localBuffer = 256

func NewLocalBus(log *logger.Logger) *LocalBus {
	if log == nil {
		log = logger.Nop()
	}
	return &LocalBus{log: log.With("service", "LocalEventBus"), subs: map[int]chan realtime.Event{}}
}

var _ Bus = (*LocalBus)(nil)

func (b *LocalBus) Publish(_ context.Context, ev realtime.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("local event bus closed")
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn("event subscriber is full, dropping event", "subscriber", id, "type", string(ev.Type))
		}
	}
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("local event bus closed")
	}
	id := b.nextID
	b.nextID++
	ch := make(chan realtime.Event, localBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		defer b.unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *LocalBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
