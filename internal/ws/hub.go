package ws

import (
	"context"
	"encoding/json"
	"sync"
)

// Event is one message on a staff member's live feed.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type staffEvent struct {
	StaffID int64
	Event   Event
}

// Hub keeps one room per staff member; a person logged in from several
// devices gets every event on each connection.
type Hub struct {
	rooms map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *staffEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *staffEvent, 256),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for staffID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, staffID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.staffID] == nil {
				h.rooms[client.staffID] = make(map[*Client]bool)
			}
			h.rooms[client.staffID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.Event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[ev.StaffID] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.staffID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.staffID)
	}
}

// SendToStaff queues ev for every open connection of staffID. It never
// blocks the caller once the broadcast buffer is full; the event is dropped.
func (h *Hub) SendToStaff(staffID int64, ev Event) bool {
	select {
	case h.broadcast <- &staffEvent{StaffID: staffID, Event: ev}:
		return true
	default:
		return false
	}
}

// Online reports whether staffID has at least one open connection.
func (h *Hub) Online(staffID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[staffID]) > 0
}
