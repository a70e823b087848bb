package bus

import (
	"context"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/realtime"
)

// Bus fans allocation events out to subscribers, possibly across processes.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}
