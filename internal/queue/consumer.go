package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/storefront-api/internal/model"
)

// ErrMalformedEvent marks a delivery whose body is not an OrderEvent.
var ErrMalformedEvent = errors.New("malformed order event")

// NotificationWriter stores notifications produced from events.
type NotificationWriter interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateMany(ctx context.Context, userIDs []uint64, title, message, typ string) error
}

// AdminDirectory lists the accounts that receive admin notifications.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]uint64, error)
}

// Notifier turns order events into user and admin notifications.
type Notifier struct {
	Notes  NotificationWriter
	Admins AdminDirectory
}

// Handle writes the notifications for one event.  Unknown event types are
// ignored.
func (n Notifier) Handle(ctx context.Context, ev OrderEvent) error {
	switch ev.Type {
	case EventOrderPlaced:
		buyer := &model.Notification{
			UserID:  ev.UserID,
			Title:   fmt.Sprintf("Order #%d Confirmed", ev.OrderID),
			Message: fmt.Sprintf("Your order has been placed successfully. Total: $%s", ev.Total.StringFixed(2)),
			Type:    model.NotifySuccess,
		}
		if err := n.Notes.Create(ctx, buyer); err != nil {
			return fmt.Errorf("buyer notification: %w", err)
		}
		admins, err := n.Admins.AdminIDs(ctx)
		if err != nil {
			return fmt.Errorf("list admins: %w", err)
		}
		who := ev.Username
		if who == "" {
			who = fmt.Sprintf("user %d", ev.UserID)
		}
		return n.Notes.CreateMany(ctx, admins,
			fmt.Sprintf("New Order #%d", ev.OrderID),
			fmt.Sprintf("%s placed order #%d (%d items, $%s).", who, ev.OrderID, ev.ItemCount, ev.Total.StringFixed(2)),
			model.NotifyAdmin)
	case EventOrderCancelled:
		return n.Notes.Create(ctx, &model.Notification{
			UserID:  ev.UserID,
			Title:   fmt.Sprintf("Order #%d Cancelled", ev.OrderID),
			Message: fmt.Sprintf("Your order #%d has been cancelled and its items returned to stock.", ev.OrderID),
			Type:    model.NotifyWarning,
		})
	}
	return nil
}

// HandleMessage decodes a raw delivery body and handles it.
func (n Notifier) HandleMessage(ctx context.Context, body []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return n.Handle(ctx, ev)
}

// StartOrderConsumer connects to RabbitMQ, declares the order events
// queue and feeds every delivery to n.  It reconnects with exponential
// backoff until ctx is cancelled.  Malformed messages are dropped; other
// failures are requeued once, see shouldRequeue.
func StartOrderConsumer(ctx context.Context, url string, n Notifier) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("order-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, n)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("order-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

// shouldRequeue reports whether a failed delivery goes back on the queue.
// Bodies that cannot be decoded never will; a storage failure gets one
// more attempt.
func shouldRequeue(err error, redelivered bool) bool {
	return !errors.Is(err, ErrMalformedEvent) && !redelivered
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, n Notifier) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnf("order-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(OrderEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(OrderEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := n.HandleMessage(hctx, d.Body)
			cancel()
			if err != nil {
				log.Errorf("order-consumer: handle message %s failed: %v", d.MessageId, err)
				_ = d.Nack(false, shouldRequeue(err, d.Redelivered))
				continue
			}
			_ = d.Ack(false)
		}
	}
}
