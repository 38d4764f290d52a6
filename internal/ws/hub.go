// Package ws is the notification side channel: a single hub owning a
// registry of connected clients, fed fire-and-forget events by the
// controllers after successful mutations. Delivery is best-effort,
// nothing here ever fails the triggering request.
package ws

import (
	"encoding/json"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is one notification frame.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types pushed by the controllers.
const (
	EventAttendanceMarked  = "attendance_marked"
	EventGradeRecorded     = "grade_recorded"
	EventGradeUpdated      = "grade_updated"
	EventFeePaid           = "fee_paid"
	EventInventoryLowStock = "inventory_low_stock"
	EventTransportAssigned = "transport_assigned"
	EventBookIssued        = "book_issued"
)

type directEvent struct {
	userID primitive.ObjectID
	event  Event
}

// Hub owns the connection registry: a bidirectional mapping between
// user ids and connections, so disconnect is O(1) by connection id
// and a scoped emit reaches only the user's connections. The maps are
// touched exclusively by the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	direct     chan directEvent

	byConn map[string]*Client
	byUser map[primitive.ObjectID]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
		direct:     make(chan directEvent, 64),
		byConn:     make(map[string]*Client),
		byUser:     make(map[primitive.ObjectID]map[string]*Client),
	}
}

// Run applies registry and delivery commands until the process exits.
// Start it once, before the server accepts upgrades.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case ev := <-h.broadcast:
			h.handleBroadcast(ev)
		case d := <-h.direct:
			h.handleDirect(d.userID, d.event)
		}
	}
}

// Emit broadcasts an event to every connected client. It never blocks
// the caller: with the hub queue full the event is dropped.
func (h *Hub) Emit(eventType string, payload any) {
	select {
	case h.broadcast <- Event{Type: eventType, Payload: payload}:
	default:
	}
}

// EmitTo delivers an event only to the given user's connections. No
// connections, no delivery; the caller never learns either way.
func (h *Hub) EmitTo(userID primitive.ObjectID, eventType string, payload any) {
	select {
	case h.direct <- directEvent{userID: userID, event: Event{Type: eventType, Payload: payload}}:
	default:
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.byConn[c.ID] = c
	conns := h.byUser[c.UserID]
	if conns == nil {
		conns = make(map[string]*Client)
		h.byUser[c.UserID] = conns
	}
	conns[c.ID] = c
}

func (h *Hub) handleUnregister(c *Client) {
	// The client may already have been dropped for falling behind.
	if _, ok := h.byConn[c.ID]; !ok {
		return
	}
	h.drop(c)
}

func (h *Hub) handleBroadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: marshal %s event: %v", ev.Type, err)
		return
	}
	for _, c := range h.byConn {
		h.deliver(c, msg)
	}
}

func (h *Hub) handleDirect(userID primitive.ObjectID, ev Event) {
	conns := h.byUser[userID]
	if len(conns) == 0 {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: marshal %s event: %v", ev.Type, err)
		return
	}
	for _, c := range conns {
		h.deliver(c, msg)
	}
}

// deliver enqueues without blocking; a client whose send buffer is
// full is disconnected rather than allowed to stall the hub.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.byConn, c.ID)
	if conns := h.byUser[c.UserID]; conns != nil {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	close(c.send)
}
