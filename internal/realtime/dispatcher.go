package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

// MembershipStore answers "is user X a member of room Y". Satisfied by the
// chat member repo.
type MembershipStore interface {
	IsMember(dbc dbctx.Context, roomID, userID uuid.UUID) (bool, error)
}

// MessageStore durably appends a message. Satisfied by the chat message repo.
type MessageStore interface {
	Append(dbc dbctx.Context, roomID, authorID uuid.UUID, content string) (*types.ChatMessage, error)
}

// Publisher pushes events onto a cross-process broadcast bus. When one is
// wired, the bus forwarder loops events back into Deliver; without one the
// dispatcher delivers locally and is complete on its own.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Dispatcher owns the live room -> connections registry. It is not a system
// of record: membership and durability questions are always answered by the
// stores, never cached here. Authorization is re-checked on every send.
type Dispatcher struct {
	mu            sync.RWMutex
	log           *logger.Logger
	members       MembershipStore
	messages      MessageStore
	publisher     Publisher
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool
}

func NewDispatcher(log *logger.Logger, members MembershipStore, messages MessageStore) *Dispatcher {
	return &Dispatcher{
		log:           log.With("component", "Dispatcher"),
		members:       members,
		messages:      messages,
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// SetPublisher wires an optional broadcast bus. Call before serving traffic.
func (d *Dispatcher) SetPublisher(p Publisher) { d.publisher = p }

// Connect registers a fresh connection for a user. No room membership is
// implied; the client sees nothing until it joins.
func (d *Dispatcher) Connect(userID uuid.UUID) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Rooms:    make(map[string]bool),
		Outbound: make(chan Event, 16),
		done:     make(chan struct{}),
	}
	d.mu.Lock()
	d.clients[c] = true
	d.mu.Unlock()
	d.log.Debug("client connected", "clientID", c.ID, "userID", userID)
	return c
}

// Join adds the client to a room's live group. Joining is purely a presence
// action: it never creates a membership record, and non-members are rejected
// silently (false) rather than with an error.
func (d *Dispatcher) Join(ctx context.Context, c *Client, roomID uuid.UUID) (bool, error) {
	if c == nil || roomID == uuid.Nil {
		return false, nil
	}
	ok, err := d.members.IsMember(dbctx.Context{Ctx: ctx}, roomID, c.UserID)
	if err != nil {
		return false, err
	}
	if !ok {
		d.log.Debug("join rejected: not a member", "clientID", c.ID, "roomID", roomID)
		return false, nil
	}

	key := roomID.String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.clients[c] {
		return false, nil
	}
	c.Rooms[key] = true
	group, exists := d.subscriptions[key]
	if !exists {
		group = make(map[*Client]bool)
		d.subscriptions[key] = group
	}
	group[c] = true
	return true, nil
}

// Send authorizes, durably appends, then broadcasts. The append happens
// before any client (the sender included) sees the message; if the append
// fails the error propagates to the caller and nothing is broadcast.
// A non-member send is dropped silently: (nil, nil).
func (d *Dispatcher) Send(ctx context.Context, c *Client, roomID uuid.UUID, content string) (*types.ChatMessage, error) {
	if c == nil || roomID == uuid.Nil {
		return nil, nil
	}
	// Membership can change between join and send, so it is re-validated
	// here rather than cached on the connection.
	ok, err := d.members.IsMember(dbctx.Context{Ctx: ctx}, roomID, c.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		d.log.Debug("send dropped: not a member", "clientID", c.ID, "roomID", roomID)
		return nil, nil
	}

	msg, err := d.messages.Append(dbctx.Context{Ctx: ctx}, roomID, c.UserID, content)
	if err != nil {
		return nil, err
	}

	d.Emit(ctx, Event{
		Channel: roomID.String(),
		Event:   EventMessageReceived,
		Data:    map[string]any{"message": msg},
	})
	return msg, nil
}

// Disconnect removes the client from every live group. Membership records
// are untouched: disconnecting is not leaving.
func (d *Dispatcher) Disconnect(c *Client) {
	if c == nil {
		return
	}
	d.mu.Lock()
	if !d.clients[c] {
		d.mu.Unlock()
		return
	}
	delete(d.clients, c)
	for key := range c.Rooms {
		if group, ok := d.subscriptions[key]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(d.subscriptions, key)
			}
		}
	}
	c.Rooms = make(map[string]bool)
	d.mu.Unlock()

	close(c.done)
	close(c.Outbound)
	d.log.Debug("client disconnected", "clientID", c.ID)
}

// Emit routes an event through the bus when one is wired, otherwise straight
// to the local registry. Bus failures fall back to local delivery so clients
// on this process still hear about durable writes.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, ev); err == nil {
			return
		} else {
			d.log.Warn("bus publish failed, delivering locally", "error", err)
		}
	}
	d.Deliver(ev)
}

// Deliver fans an event out to every connection currently joined to its room.
// A slow client's full buffer drops the event for that client only; recovery
// is a history pull, never a dispatcher retransmit.
func (d *Dispatcher) Deliver(ev Event) {
	if ev.Channel == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	group, ok := d.subscriptions[ev.Channel]
	if !ok {
		return
	}
	for c := range group {
		select {
		case c.Outbound <- ev:
		default:
			d.log.Warn("dropping event; outbound buffer full", "clientID", c.ID, "roomID", ev.Channel)
		}
	}
}
