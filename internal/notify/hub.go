package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cleaning-crm/api/internal/ws"
)

type feed interface {
	SendToStaff(staffID int64, ev ws.Event) bool
}

// Hub pushes events onto the live feed of every recipient.
type Hub struct {
	hub feed
}

func NewHub(hub *ws.Hub) *Hub {
	return &Hub{hub: hub}
}

func (h *Hub) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := ws.Event{Type: ev.Type, Payload: payload}
	for _, id := range ev.Recipients() {
		if !h.hub.SendToStaff(id, msg) {
			return fmt.Errorf("live feed full, dropped %s for staff %d", ev.Type, id)
		}
	}
	return nil
}
