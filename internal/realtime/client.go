package realtime

import (
	"github.com/google/uuid"
)

// Client is one live connection. A client may be joined to several rooms at
// once; Rooms is owned by the dispatcher and mutated only under its lock.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Rooms    map[string]bool
	Outbound chan Event
	done     chan struct{}
}

// Done closes when the dispatcher disconnects the client.
func (c *Client) Done() <-chan struct{} { return c.done }
