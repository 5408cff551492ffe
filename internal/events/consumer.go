package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/openshelf/openshelf/internal/config"
)

// Handler processes a single payment event. A returned error drops the
// message without requeue; a malformed or repeatedly failing message
// must not poison the queue.
type Handler func(ctx context.Context, event PaymentEvent) error

// Consumer reads payment events from the queue the publisher declares.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.AMQPConfig
	logger  *slog.Logger
}

func NewConsumer(cfg config.AMQPConfig, logger *slog.Logger) (*Consumer, error) {
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

	if err := ch.Qos(10, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, cfg: cfg, logger: logger}, nil
}

// Consume blocks processing deliveries until the context is cancelled
// or the channel closes.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp channel closed")
			}

			var event PaymentEvent
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				c.logger.Error("discarding malformed event", slog.Any("error", err))
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, event); err != nil {
				c.logger.Error("event handler failed",
					slog.String("type", event.Type),
					slog.String("payment_id", event.PaymentID),
					slog.Any("error", err))
				delivery.Nack(false, false)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}
