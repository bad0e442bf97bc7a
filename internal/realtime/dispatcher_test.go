package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

type fakeMembers struct {
	members map[string]bool
	err     error
}

func (f *fakeMembers) IsMember(dbc dbctx.Context, roomID, userID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[roomID.String()+"/"+userID.String()], nil
}

func (f *fakeMembers) add(roomID, userID uuid.UUID) {
	if f.members == nil {
		f.members = make(map[string]bool)
	}
	f.members[roomID.String()+"/"+userID.String()] = true
}

type fakeMessages struct {
	appended []*types.ChatMessage
	err      error
	nextSeq  int64
}

func (f *fakeMessages) Append(dbc dbctx.Context, roomID, authorID uuid.UUID, content string) (*types.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.nextSeq++
	msg := &types.ChatMessage{
		ID:       uuid.New(),
		RoomID:   roomID,
		AuthorID: authorID,
		Seq:      f.nextSeq,
		Content:  content,
	}
	f.appended = append(f.appended, msg)
	return msg, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestJoinRejectsNonMemberSilently(t *testing.T) {
	members := &fakeMembers{}
	d := NewDispatcher(testLogger(t), members, &fakeMessages{})
	roomID := uuid.New()

	c := d.Connect(uuid.New())
	ok, err := d.Join(context.Background(), c, roomID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if ok {
		t.Fatalf("Join: non-member should be rejected")
	}
	if len(c.Rooms) != 0 {
		t.Fatalf("Join: rejected client should not be subscribed")
	}
}

func TestSendAppendsBeforeBroadcast(t *testing.T) {
	members := &fakeMembers{}
	messages := &fakeMessages{}
	d := NewDispatcher(testLogger(t), members, messages)
	roomID := uuid.New()

	sender := d.Connect(uuid.New())
	listener := d.Connect(uuid.New())
	members.add(roomID, sender.UserID)
	members.add(roomID, listener.UserID)

	for _, c := range []*Client{sender, listener} {
		if ok, err := d.Join(context.Background(), c, roomID); err != nil || !ok {
			t.Fatalf("Join: ok=%v err=%v", ok, err)
		}
	}

	msg, err := d.Send(context.Background(), sender, roomID, "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg == nil || msg.Seq != 1 {
		t.Fatalf("Send: unexpected message: %+v", msg)
	}
	if len(messages.appended) != 1 {
		t.Fatalf("Send: expected 1 durable append, got %d", len(messages.appended))
	}

	// Both the sender and the other member receive the event.
	for _, c := range []*Client{sender, listener} {
		select {
		case ev := <-c.Outbound:
			if ev.Event != EventMessageReceived || ev.Channel != roomID.String() {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestSendDropsNonMemberSilently(t *testing.T) {
	members := &fakeMembers{}
	messages := &fakeMessages{}
	d := NewDispatcher(testLogger(t), members, messages)
	roomID := uuid.New()

	member := d.Connect(uuid.New())
	members.add(roomID, member.UserID)
	if ok, err := d.Join(context.Background(), member, roomID); err != nil || !ok {
		t.Fatalf("Join: ok=%v err=%v", ok, err)
	}

	outsider := d.Connect(uuid.New())
	msg, err := d.Send(context.Background(), outsider, roomID, "sneaky")
	if err != nil {
		t.Fatalf("Send: expected silent drop, got error %v", err)
	}
	if msg != nil {
		t.Fatalf("Send: expected nil message for non-member, got %+v", msg)
	}
	if len(messages.appended) != 0 {
		t.Fatalf("Send: nothing should be persisted for a non-member")
	}
	select {
	case ev := <-member.Outbound:
		t.Fatalf("member should see nothing, got %+v", ev)
	default:
	}
}

func TestSendSkipsBroadcastWhenAppendFails(t *testing.T) {
	members := &fakeMembers{}
	appendErr := errors.New("storage down")
	messages := &fakeMessages{err: appendErr}
	d := NewDispatcher(testLogger(t), members, messages)
	roomID := uuid.New()

	c := d.Connect(uuid.New())
	members.add(roomID, c.UserID)
	if ok, err := d.Join(context.Background(), c, roomID); err != nil || !ok {
		t.Fatalf("Join: ok=%v err=%v", ok, err)
	}

	msg, err := d.Send(context.Background(), c, roomID, "hello")
	if !errors.Is(err, appendErr) {
		t.Fatalf("Send: expected append error, got %v", err)
	}
	if msg != nil {
		t.Fatalf("Send: expected nil message on failure, got %+v", msg)
	}
	select {
	case ev := <-c.Outbound:
		t.Fatalf("no event should be broadcast on append failure, got %+v", ev)
	default:
	}
}

func TestMembershipRevalidatedAfterJoin(t *testing.T) {
	members := &fakeMembers{}
	messages := &fakeMessages{}
	d := NewDispatcher(testLogger(t), members, messages)
	roomID := uuid.New()

	c := d.Connect(uuid.New())
	members.add(roomID, c.UserID)
	if ok, err := d.Join(context.Background(), c, roomID); err != nil || !ok {
		t.Fatalf("Join: ok=%v err=%v", ok, err)
	}

	// Membership revoked while the connection stays up.
	members.members = nil

	msg, err := d.Send(context.Background(), c, roomID, "after removal")
	if err != nil || msg != nil {
		t.Fatalf("Send after removal: expected silent drop, got msg=%+v err=%v", msg, err)
	}
	if len(messages.appended) != 0 {
		t.Fatalf("Send after removal: nothing should be persisted")
	}
}

func TestDisconnectCleansUpLiveState(t *testing.T) {
	members := &fakeMembers{}
	d := NewDispatcher(testLogger(t), members, &fakeMessages{})
	roomID := uuid.New()

	c := d.Connect(uuid.New())
	members.add(roomID, c.UserID)
	if ok, err := d.Join(context.Background(), c, roomID); err != nil || !ok {
		t.Fatalf("Join: ok=%v err=%v", ok, err)
	}

	d.Disconnect(c)
	select {
	case <-c.Done():
	default:
		t.Fatalf("Disconnect: done channel should be closed")
	}

	// Events to the room no longer reach the disconnected client, and the
	// membership record itself is untouched (disconnect is not leave).
	d.Deliver(Event{Channel: roomID.String(), Event: EventMessageReceived})
	if _, ok := <-c.Outbound; ok {
		t.Fatalf("Disconnect: outbound should be closed and drained")
	}
	if ok, _ := members.IsMember(dbctx.Context{}, roomID, c.UserID); !ok {
		t.Fatalf("Disconnect: membership record must survive")
	}

	// Double disconnect is a no-op.
	d.Disconnect(c)
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	members := &fakeMembers{}
	d := NewDispatcher(testLogger(t), members, &fakeMessages{})
	roomID := uuid.New()

	c := d.Connect(uuid.New())
	members.add(roomID, c.UserID)
	if ok, err := d.Join(context.Background(), c, roomID); err != nil || !ok {
		t.Fatalf("Join: ok=%v err=%v", ok, err)
	}

	// Overfill the outbound buffer; Deliver must not block.
	for i := 0; i < cap(c.Outbound)+5; i++ {
		d.Deliver(Event{Channel: roomID.String(), Event: EventMessageReceived})
	}
	if len(c.Outbound) != cap(c.Outbound) {
		t.Fatalf("expected full buffer, got %d/%d", len(c.Outbound), cap(c.Outbound))
	}
}
