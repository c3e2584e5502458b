package rabbit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/Temutjin2k/driver-engine/pkg/rabbit"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type HandlerFunc func(ctx context.Context, ev models.Event) error

// EventConsumer delivers the realtime events of one driver.
type EventConsumer struct {
	client   *rabbit.RabbitMQ
	exchange string
	driverID uuid.UUID
	l        logger.Logger
}

func NewEventConsumer(client *rabbit.RabbitMQ, exchange string, driverID uuid.UUID, l logger.Logger) *EventConsumer {
	return &EventConsumer{client: client, exchange: exchange, driverID: driverID, l: l}
}

func (c *EventConsumer) declare(ch *amqp.Channel) (amqp.Queue, error) {
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare exchange: %w", err)
	}

	// offers are useless after their countdown, drop undelivered ones
	args := amqp.Table{"x-message-ttl": int32(5 * time.Minute / time.Millisecond)}
	q, err := ch.QueueDeclare(QueueName(c.driverID), true, false, false, false, args)
	if err != nil {
		return q, fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range BindingKeys(c.driverID) {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return q, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return q, nil
}

// Consume delivers events to fn one at a time, in order, until ctx is done.
// Lost connections are re-established.
func (c *EventConsumer) Consume(ctx context.Context, fn HandlerFunc) error {
	const op = "EventConsumer.Consume"
	ctx = wrap.WithAction(ctx, types.ActionEventConsume)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.client.EnsureConnection(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, rabbit.ErrClosed) {
				return nil
			}
			c.l.Error(ctx, "ensure connection failed", err, "op", op)
			sleepCtx(ctx, 2*time.Second)
			continue
		}

		ch := c.client.Channel()
		q, err := c.declare(ch)
		if err != nil {
			c.l.Error(ctx, "declare failed", err, "op", op)
			sleepCtx(ctx, 2*time.Second)
			continue
		}

		if err := ch.Qos(1, 0, false); err != nil {
			c.l.Error(ctx, "qos failed", err, "op", op)
			sleepCtx(ctx, 2*time.Second)
			continue
		}

		msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			c.l.Error(ctx, "consume failed", err, "op", op)
			sleepCtx(ctx, 2*time.Second)
			continue
		}

		c.l.Info(ctx, "consuming driver events", "queue", q.Name, "exchange", c.exchange)

		if !c.drain(ctx, msgs, fn) {
			return nil
		}
		c.l.Warn(ctx, "message channel closed, reconnecting", "op", op)
		sleepCtx(ctx, time.Second)
	}
}

// drain handles deliveries until the channel closes. It returns false when
// ctx is done.
func (c *EventConsumer) drain(ctx context.Context, msgs <-chan amqp.Delivery, fn HandlerFunc) bool {
	for {
		select {
		case <-ctx.Done():
			c.l.Info(ctx, "driver event consumer shutting down")
			return false
		case msg, ok := <-msgs:
			if !ok {
				return true
			}
			c.handle(ctx, fn, msg)
		}
	}
}

func (c *EventConsumer) handle(ctx context.Context, fn HandlerFunc, msg amqp.Delivery) {
	queue := QueueName(c.driverID)

	ev, err := decodeEvent(msg.RoutingKey, msg.Body)
	if err != nil {
		c.l.Warn(ctx, "dropping malformed event", "routing_key", msg.RoutingKey, "error", err.Error())
		metrics.RecordRabbitMQConsume(queue, err)
		_ = msg.Reject(false)
		return
	}

	if err := fn(ctx, ev); err != nil {
		c.l.Error(ctx, "event handler failed", err, "type", ev.Type, "redelivered", msg.Redelivered)
		metrics.RecordRabbitMQConsume(queue, err)
		// one retry, then drop
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	metrics.RecordRabbitMQConsume(queue, nil)
	if err := msg.Ack(false); err != nil {
		c.l.Warn(ctx, "ack failed", "error", err.Error())
	}
}
