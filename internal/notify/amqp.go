package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ordersExchange        = "orders_topic"
	notificationsExchange = "notifications_fanout"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes order and delivery events to the orders topic
// exchange and every event to the notifications fanout.
type AMQPNotifier struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   Channel
}

func DialAMQP(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	n, err := NewAMQPNotifier(ch)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	n.conn = conn
	return n, nil
}

func NewAMQPNotifier(ch Channel) (*AMQPNotifier, error) {
	if err := ch.ExchangeDeclare(ordersExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(notificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPNotifier{ch: ch}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if event.OrderID != "" {
		err := n.ch.PublishWithContext(ctx, ordersExchange, RoutingKey(event), false, false, amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("failed to publish order event: %w", err)
		}
	}

	err = n.ch.PublishWithContext(ctx, notificationsExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// RoutingKey is "kitchen.<status>" for order events and
// "delivery.<action>" for driver actions, so kitchen consumers bound to
// kitchen.# never see delivery traffic.
func RoutingKey(event Event) string {
	status := event.Status
	if status == "" {
		status = "unknown"
	}
	if event.Kind == KindDeliveryEvent {
		return "delivery." + status
	}
	return "kitchen." + status
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.ch.Close()
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
