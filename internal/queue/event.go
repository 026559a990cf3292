// Package queue defines the order event payloads exchanged over RabbitMQ
// and the background consumer that turns them into notifications.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/model"
)

// OrderEventsQueue is the durable queue carrying every order event.
const OrderEventsQueue = "order.events"

// Order event types.
const (
	EventOrderPlaced    = "order.placed"
	EventOrderCancelled = "order.cancelled"
)

// OrderEvent is published after an order transaction commits.  It holds
// enough for downstream consumers to notify users without reading the
// orders table.
type OrderEvent struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OrderID    uint64          `json:"order_id"`
	UserID     uint64          `json:"user_id"`
	Username   string          `json:"username,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status"`
	ItemCount  int             `json:"item_count"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewOrderEvent builds an event of the given type for o.
func NewOrderEvent(typ string, o model.Order) OrderEvent {
	count := 0
	for _, l := range o.Items {
		count += l.Quantity
	}
	return OrderEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Username:   o.Username,
		Total:      o.TotalAmount,
		Status:     o.Status,
		ItemCount:  count,
		OccurredAt: time.Now().UTC(),
	}
}
