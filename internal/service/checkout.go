package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// CartLedger is the cart side of checkout.
type CartLedger interface {
	LinesForCheckoutTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]model.CartLine, error)
	ClearTx(ctx context.Context, tx *sql.Tx, userID uint64) error
}

// StockLedger moves product stock inside a caller's transaction.
type StockLedger interface {
	DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uint64, qty int) error
	RestoreStockTx(ctx context.Context, tx *sql.Tx, productID uint64, qty int) error
}

// OrderWriter records new orders.
type OrderWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error
	CreateLinesBulkTx(ctx context.Context, tx *sql.Tx, orderID uint64, lines []model.OrderLine) error
}

// CheckoutService turns a user's cart into an order.  The cart, catalog
// and order stores share one database so the whole conversion is a
// single transaction.
type CheckoutService struct {
	db     *sql.DB
	carts  CartLedger
	stock  StockLedger
	orders OrderWriter
	events EventPublisher
}

// NewCheckoutService wires the checkout flow.  events may be nil.
func NewCheckoutService(db *sql.DB, carts CartLedger, stock StockLedger, orders OrderWriter, events EventPublisher) *CheckoutService {
	return &CheckoutService{db: db, carts: carts, stock: stock, orders: orders, events: events}
}

// Checkout validates every cart line against current stock, writes the
// order with a price snapshot per line, decrements stock and clears the
// cart.  Nothing is written unless every step succeeds.
func (s *CheckoutService) Checkout(ctx context.Context, who model.Identity) (model.Order, error) {
	if who.UserID == 0 {
		return model.Order{}, ErrUnauthenticated
	}
	var order model.Order
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		lines, err := s.carts.LinesForCheckoutTx(ctx, tx, who.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		items := make([]model.OrderLine, 0, len(lines))
		for _, l := range lines {
			if l.Quantity > l.Stock {
				return insufficient(l.Name, l.Stock)
			}
			total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			items = append(items, model.OrderLine{
				ProductID:   l.ProductID,
				ProductName: l.Name,
				Quantity:    l.Quantity,
				Price:       l.Price,
			})
		}

		order = model.Order{
			UserID:      who.UserID,
			Username:    who.Username,
			TotalAmount: total,
			Status:      model.OrderPending,
		}
		if err := s.orders.CreateTx(ctx, tx, &order); err != nil {
			return err
		}
		if err := s.orders.CreateLinesBulkTx(ctx, tx, order.ID, items); err != nil {
			return err
		}
		for i, l := range lines {
			if err := s.stock.DecrementStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockExhausted) {
					return insufficient(l.Name, l.Stock)
				}
				return err
			}
			items[i].OrderID = order.ID
		}
		if err := s.carts.ClearTx(ctx, tx, who.UserID); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	publish(ctx, s.events, queue.NewOrderEvent(queue.EventOrderPlaced, order))
	return order, nil
}
