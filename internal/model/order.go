package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// orderTransitions lists the statuses reachable from each status.
// Cancellation is only possible from pending; delivered and cancelled
// are terminal.
var orderTransitions = map[string][]string{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped},
	OrderShipped:    {OrderDelivered},
}

// ValidOrderStatus reports whether s is one of the known statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order records a purchase created by checkout.  TotalAmount is the sum
// of the line subtotals at purchase time and is never recomputed.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – buyer.
//	Username    – buyer name, filled for admin listings.
//	TotalAmount – sum of quantity*price over the lines.
//	Status      – one of the Order* constants.
//	CreatedAt   – creation timestamp.
//	Items       – order lines, filled by detail reads.
type Order struct {
	ID          uint64          `json:"id"`
	UserID      uint64          `json:"user_id"`
	Username    string          `json:"username,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderLine     `json:"items,omitempty"`
}

// OrderLine is one purchased product.  Price is a snapshot of the unit
// price at checkout, independent of later catalog changes.
type OrderLine struct {
	ID          uint64          `json:"id"`
	OrderID     uint64          `json:"order_id"`
	ProductID   uint64          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal returns quantity*price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartLine is one (user, product, quantity) row joined with the current
// catalog values of the product.
type CartLine struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"-"`
	ProductID uint64          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Cart is the caller's cart with its running total.
type Cart struct {
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// NewCart computes subtotals and the total of lines.
func NewCart(lines []CartLine) Cart {
	total := decimal.Zero
	for i := range lines {
		lines[i].Subtotal = lines[i].Price.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		total = total.Add(lines[i].Subtotal)
	}
	if lines == nil {
		lines = []CartLine{}
	}
	return Cart{Items: lines, Total: total, Count: len(lines)}
}
