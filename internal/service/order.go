package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// OrderStore is the order side of the lifecycle flows.
type OrderStore interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error)
	LinesTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderLine, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

// OrderService changes the status of existing orders.
type OrderService struct {
	db     *sql.DB
	orders OrderStore
	stock  StockLedger
	events EventPublisher
}

// NewOrderService wires the order lifecycle flows.  events may be nil.
func NewOrderService(db *sql.DB, orders OrderStore, stock StockLedger, events EventPublisher) *OrderService {
	return &OrderService{db: db, orders: orders, stock: stock, events: events}
}

// lockOwned loads and locks an order the caller may act on.  Orders of
// other users look missing.
func (s *OrderService) lockOwned(ctx context.Context, tx *sql.Tx, who model.Identity, id uint64) (model.Order, error) {
	o, err := s.orders.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return o, err
	}
	if !who.CanAccess(o.UserID) {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

// restoreTx puts the stock of every line back.
func (s *OrderService) restoreTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	lines, err := s.orders.LinesTx(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if err := s.stock.RestoreStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	o.Items = lines
	return nil
}

// Cancel moves a pending order to cancelled and restores its stock.  The
// owner or an admin may cancel; any other status is ErrInvalidTransition.
func (s *OrderService) Cancel(ctx context.Context, who model.Identity, id uint64) (model.Order, error) {
	var o model.Order
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if o, err = s.lockOwned(ctx, tx, who, id); err != nil {
			return err
		}
		if o.Status != model.OrderPending {
			return ErrInvalidTransition
		}
		if err := s.restoreTx(ctx, tx, &o); err != nil {
			return err
		}
		if err := s.orders.UpdateStatusTx(ctx, tx, o.ID, model.OrderCancelled); err != nil {
			return err
		}
		o.Status = model.OrderCancelled
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	publish(ctx, s.events, queue.NewOrderEvent(queue.EventOrderCancelled, o))
	return o, nil
}

// UpdateStatus applies a status change requested through the API.
// Cancellation goes through Cancel for everyone; other transitions are
// admin only and must follow model.CanTransition.
func (s *OrderService) UpdateStatus(ctx context.Context, who model.Identity, id uint64, status string) (model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return model.Order{}, Invalid("invalid status %q", status)
	}
	if status == model.OrderCancelled {
		return s.Cancel(ctx, who, id)
	}
	if !who.IsAdmin() {
		return model.Order{}, repository.ErrForbidden
	}
	var o model.Order
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if o, err = s.orders.GetForUpdateTx(ctx, tx, id); err != nil {
			return err
		}
		if !model.CanTransition(o.Status, status) {
			return ErrInvalidTransition
		}
		if err := s.orders.UpdateStatusTx(ctx, tx, id, status); err != nil {
			return err
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// Delete handles DELETE on an order.  Admins remove a pending order
// outright, restoring its stock; owners get a soft cancel.
func (s *OrderService) Delete(ctx context.Context, who model.Identity, id uint64) error {
	if !who.IsAdmin() {
		_, err := s.Cancel(ctx, who, id)
		return err
	}
	var o model.Order
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if o, err = s.orders.GetForUpdateTx(ctx, tx, id); err != nil {
			return err
		}
		if o.Status != model.OrderPending {
			return ErrInvalidTransition
		}
		if err := s.restoreTx(ctx, tx, &o); err != nil {
			return err
		}
		return s.orders.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	o.Status = model.OrderCancelled
	publish(ctx, s.events, queue.NewOrderEvent(queue.EventOrderCancelled, o))
	return nil
}
