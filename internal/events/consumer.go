package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/HammerMeetNail/cotravels/internal/logging"
)

// Handler processes one event. Returning an error rejects the delivery.
type Handler func(ctx context.Context, ev NotificationEvent) error

// Consumer drains the notification queue, reconnecting with backoff until
// its context is cancelled.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handler  Handler
	log      *logging.Logger
}

func NewConsumer(url, queue string, handler Handler, log *logging.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, prefetch: 50, handler: handler, log: log}
}

func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("Failed to dial broker", logging.Fields{"error": err.Error(), "retry_in": backoff.String()})
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Consume loop ended, reconnecting", logging.Fields{"error": err.Error()})
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn("Failed to set QoS", logging.Fields{"error": err.Error()})
	}
	if _, err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// delivery is the part of amqp.Delivery that settles a message.
type delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	c.settle(ctx, d.Body, d.Redelivered, d)
}

// settle decodes body and runs the handler. Malformed bodies are dropped;
// handler failures are requeued once and dropped on redelivery.
func (c *Consumer) settle(ctx context.Context, body []byte, redelivered bool, d delivery) {
	ev, err := Decode(body)
	if err != nil {
		c.log.Error("Dropping malformed notification event", logging.Fields{"error": err.Error()})
		_ = d.Nack(false, false)
		return
	}
	if err := c.handler(ctx, ev); err != nil {
		requeue := !redelivered
		c.log.Warn("Notification handler failed", logging.Fields{
			"notification_id": ev.ID.String(),
			"requeue":         requeue,
			"error":           err.Error(),
		})
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
