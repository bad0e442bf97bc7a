package bus

import (
	"context"

	"github.com/coursetrade/coursetrade-backend/internal/realtime"
)

// Bus carries room events across dispatcher processes. The deployment
// supplies one (Redis pub/sub); a single-process deployment runs without it.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}
