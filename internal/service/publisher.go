package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/storefront-api/internal/queue"
)

// EventPublisher delivers order events.  Flows publish after commit and
// only log failures, so a broker outage never fails a purchase.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.OrderEvent) error { return nil }

// AMQPPublisher publishes events to a durable RabbitMQ queue.  Each call
// dials its own connection.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// NewAMQPPublisher returns a publisher for the order events queue.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue.OrderEventsQueue}
}

// Publish sends ev as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.OrderEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// publish sends ev and only logs a failure.
func publish(ctx context.Context, p EventPublisher, ev queue.OrderEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Errorf("publish %s for order %d: %v", ev.Type, ev.OrderID, err)
	}
}
