// Package events publishes payment lifecycle events to RabbitMQ. The
// notifier process consumes them to send receipts, keeping email out of
// the request path.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/streadway/amqp"
)

const (
	RoutingKeyPaymentConfirmed = "payment.confirmed"
	RoutingKeySignupCompleted  = "signup.completed"
)

// PaymentEvent is the message body for payment lifecycle events.
type PaymentEvent struct {
	Type          string    `json:"type"`
	PaymentID     string    `json:"payment_id"`
	Provider      string    `json:"provider"`
	OrderID       string    `json:"order_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	PlanID        string    `json:"plan_id"`
	PlanName      string    `json:"plan_name,omitempty"`
	AmountCents   int       `json:"amount_cents"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customer_email"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.AMQPConfig
	logger  *slog.Logger
}

// NewPublisher connects to the broker and declares the exchange and
// queue so either side can start first.
func NewPublisher(cfg config.AMQPConfig, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: ch, cfg: cfg, logger: logger}, nil
}

func declareTopology(ch *amqp.Channel, cfg config.AMQPConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.Queue, "payment.*", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "signup.*", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Publish sends an event with persistent delivery. Failures are logged
// and returned but never block payment processing; the caller decides
// whether to treat a lost event as fatal.
func (p *Publisher) Publish(routingKey string, event PaymentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.Publish(p.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
