package notify

import (
	"context"
	"log"
	"time"
)

const (
	KindOrderCreated  = "order.created"
	KindOrderStatus   = "order.status"
	KindLowStock      = "product.low_stock"
	KindDeliveryEvent = "delivery.action"
)

type Event struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	OrderID string    `json:"order_id,omitempty"`
	Status  string    `json:"status,omitempty"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes events to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event Event) error {
	log.Printf("[notify] %s order=%s status=%s: %s", event.Kind, event.OrderID, event.Status, event.Message)
	return nil
}

// Multi fans an event out to every notifier and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
