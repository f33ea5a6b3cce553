// Package notify delivers order events to people and systems outside the
// request: Telegram chats, live WebSocket feeds and a Kafka topic.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/logger"
	"github.com/sirupsen/logrus"
)

const dispatchTimeout = 10 * time.Second

type Event struct {
	Type      string    `json:"type"`
	OrderID   int64     `json:"order_id"`
	ManagerID int64     `json:"manager_id,omitempty"`
	StaffIDs  []int64   `json:"staff_ids,omitempty"`
	Address   string    `json:"address,omitempty"`
	WorkStart time.Time `json:"work_start,omitempty"`
	At        time.Time `json:"at"`
}

// Recipients is every staff member the event concerns, manager included.
func (e Event) Recipients() []int64 {
	out := make([]int64, 0, len(e.StaffIDs)+1)
	seen := make(map[int64]bool, len(e.StaffIDs)+1)
	for _, id := range append(append([]int64{}, e.StaffIDs...), e.ManagerID) {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Text is the human-readable line sent to chat recipients.
func (e Event) Text() string {
	when := e.WorkStart.Format("02.01.2006 15:04")
	switch e.Type {
	case enum.EventOrderCreated:
		return fmt.Sprintf("New order #%d: %s, %s", e.OrderID, e.Address, when)
	case enum.EventStaffAdded:
		return fmt.Sprintf("You were assigned to order #%d: %s, %s", e.OrderID, e.Address, when)
	case enum.EventStaffRemoved:
		return fmt.Sprintf("You were removed from order #%d (%s)", e.OrderID, when)
	case enum.EventOrderFinished:
		return fmt.Sprintf("Order #%d is closed. Salary has been credited.", e.OrderID)
	default:
		return fmt.Sprintf("Order #%d: %s", e.OrderID, e.Type)
	}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatch is called after a transaction has committed. Delivery failures
// are logged and never returned; there is no retry.
func Dispatch(ctx context.Context, n Notifier, ev Event) {
	if n == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	if err := n.Notify(ctx, ev); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"event":    ev.Type,
			"order_id": ev.OrderID,
		}).Warn("notification failed")
	}
}
