package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The handle* methods are exercised directly so the registry can be
// inspected without racing the Run goroutine.

func testClient(h *Hub, id string, userID primitive.ObjectID, buf int) *Client {
	return &Client{ID: id, UserID: userID, hub: h, send: make(chan []byte, buf)}
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestRegistryLifecycle(t *testing.T) {
	h := NewHub()
	user := primitive.NewObjectID()
	phone := testClient(h, "conn-phone", user, 8)
	laptop := testClient(h, "conn-laptop", user, 8)

	h.handleRegister(phone)
	h.handleRegister(laptop)
	assert.Len(t, h.byConn, 2)
	assert.Len(t, h.byUser[user], 2)

	h.handleUnregister(phone)
	assert.Len(t, h.byConn, 1)
	assert.Len(t, h.byUser[user], 1)

	// Dropping the last connection clears the user entry entirely.
	h.handleUnregister(laptop)
	assert.Empty(t, h.byConn)
	assert.NotContains(t, h.byUser, user)

	// Send channels are closed on the way out.
	_, open := <-phone.send
	assert.False(t, open)
}

func TestUnregisterUnknownClientIsNoop(t *testing.T) {
	h := NewHub()
	c := testClient(h, "conn-1", primitive.NewObjectID(), 8)

	h.handleRegister(c)
	h.handleUnregister(c)
	// A second unregister must not close the channel twice or panic.
	h.handleUnregister(c)
	assert.Empty(t, h.byConn)
}

func TestDirectDeliveryScopedToUser(t *testing.T) {
	h := NewHub()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	alicePhone := testClient(h, "alice-phone", alice, 8)
	aliceLaptop := testClient(h, "alice-laptop", alice, 8)
	bobPhone := testClient(h, "bob-phone", bob, 8)
	h.handleRegister(alicePhone)
	h.handleRegister(aliceLaptop)
	h.handleRegister(bobPhone)

	h.handleDirect(alice, Event{Type: EventGradeRecorded, Payload: map[string]any{"percentage": 90}})

	for _, c := range []*Client{alicePhone, aliceLaptop} {
		ev := recv(t, c)
		assert.Equal(t, EventGradeRecorded, ev.Type)
	}
	assert.Empty(t, bobPhone.send)
}

func TestDirectDeliveryNoConnectionsIsNoop(t *testing.T) {
	h := NewHub()
	h.handleDirect(primitive.NewObjectID(), Event{Type: EventFeePaid})
	assert.Empty(t, h.byConn)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", primitive.NewObjectID(), 8)
	b := testClient(h, "b", primitive.NewObjectID(), 8)
	h.handleRegister(a)
	h.handleRegister(b)

	h.handleBroadcast(Event{Type: EventInventoryLowStock, Payload: map[string]any{"name": "chalk"}})

	for _, c := range []*Client{a, b} {
		ev := recv(t, c)
		assert.Equal(t, EventInventoryLowStock, ev.Type)
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	h := NewHub()
	user := primitive.NewObjectID()
	slow := testClient(h, "slow", user, 1)
	h.handleRegister(slow)

	// First event fills the buffer, second finds it full and evicts
	// the client instead of blocking the hub.
	h.handleDirect(user, Event{Type: EventAttendanceMarked})
	h.handleDirect(user, Event{Type: EventAttendanceMarked})

	assert.Empty(t, h.byConn)
	assert.NotContains(t, h.byUser, user)

	// The queued event is still readable, then the channel closes.
	ev := recv(t, slow)
	assert.Equal(t, EventAttendanceMarked, ev.Type)
	_, open := <-slow.send
	assert.False(t, open)
}

func TestEmitNeverBlocks(t *testing.T) {
	h := NewHub()
	// Nobody is draining h.broadcast; overflowing the queue must drop
	// events rather than hang the caller.
	for i := 0; i < 200; i++ {
		h.Emit(EventInventoryLowStock, nil)
	}
	for i := 0; i < 200; i++ {
		h.EmitTo(primitive.NewObjectID(), EventFeePaid, nil)
	}
}
