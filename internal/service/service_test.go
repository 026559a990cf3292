package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []queue.OrderEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

// money matches a decimal argument by value.
type money string

func (m money) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.Equal(decimal.RequireFromString(string(m)))
}

var (
	customer = model.Identity{UserID: 1, Username: "alice", Role: model.RoleCustomer}
	stranger = model.Identity{UserID: 2, Username: "bob", Role: model.RoleCustomer}
	admin    = model.Identity{UserID: 9, Username: "root", Role: model.RoleAdmin}
)

const (
	checkoutLinesSQL = "FROM cart_items c LEFT JOIN products p ON p.id = c.product_id"
	insertOrderSQL   = "INSERT INTO orders (user_id, total_amount, status, created_at)"
	insertLinesSQL   = "INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)"
	decrementSQL     = "UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?"
	restoreSQL       = "UPDATE products SET stock = stock + ? WHERE id = ?"
	clearCartSQL     = "DELETE FROM cart_items WHERE user_id = ?"
	lockOrderSQL     = "FROM orders WHERE id = ? FOR UPDATE"
	orderLinesSQL    = "FROM order_items WHERE order_id = ? ORDER BY id"
	setStatusSQL     = "UPDATE orders SET status = ? WHERE id = ?"
)

var cartCols = []string{"id", "product_id", "quantity", "name", "price", "stock"}

func newCheckout(t *testing.T) (*CheckoutService, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rec := &recorder{}
	svc := NewCheckoutService(db, repository.NewCartRepo(db), repository.NewProductRepo(db), repository.NewOrderRepo(db), rec)
	return svc, mock, rec
}

func TestCheckout_CreatesOrderAndClearsCart(t *testing.T) {
	svc, mock, rec := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(7, 100, 3, "Product A", "10.00", 5))
	mock.ExpectExec(regexp.QuoteMeta(insertOrderSQL)).
		WithArgs(1, money("30.00"), model.OrderPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLinesSQL)).
		WithArgs(55, 100, 3, money("10.00")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs(3, 100, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(clearCartSQL)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, uint64(55), order.ID)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("30.00")), order.TotalAmount.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, uint64(55), order.Items[0].OrderID)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, rec.events, 1)
	assert.Equal(t, queue.EventOrderPlaced, rec.events[0].Type)
	assert.Equal(t, uint64(55), rec.events[0].OrderID)
	assert.Equal(t, 3, rec.events[0].ItemCount)
}

func TestCheckout_TotalSumsLines(t *testing.T) {
	svc, mock, _ := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols).
			AddRow(1, 100, 2, "Mug", "4.50", 10).
			AddRow(2, 101, 1, "Tea", "12.25", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertOrderSQL)).
		WithArgs(1, money("21.25"), model.OrderPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, ?, ?),(?, ?, ?, ?)")).
		WithArgs(3, 100, 2, money("4.50"), 3, 101, 1, money("12.25")).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).WithArgs(2, 100, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).WithArgs(1, 101, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(clearCartSQL)).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), customer)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, l := range order.Items {
		sum = sum.Add(l.Subtotal())
	}
	assert.True(t, sum.Equal(order.TotalAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, mock, rec := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), customer)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_InsufficientStockWritesNothing(t *testing.T) {
	svc, mock, rec := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(7, 100, 6, "Product A", "10.00", 5))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), customer)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Product A")
	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_MissingProductIsNotFound(t *testing.T) {
	svc, mock, _ := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(7, 100, 1, nil, nil, nil))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), customer)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_FailureAfterOrderInsertRollsBack(t *testing.T) {
	svc, mock, rec := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(7, 100, 3, "Product A", "10.00", 5))
	mock.ExpectExec(regexp.QuoteMeta(insertOrderSQL)).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLinesSQL)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), customer)
	assert.EqualError(t, err, "disk full")
	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_ConcurrentBuyerWinsRace(t *testing.T) {
	svc, mock, _ := newCheckout(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(7, 100, 3, "Product A", "10.00", 5))
	mock.ExpectExec(regexp.QuoteMeta(insertOrderSQL)).WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLinesSQL)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).
		WithArgs(3, 100, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), customer)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_PublishFailureDoesNotFailOrder(t *testing.T) {
	svc, mock, rec := newCheckout(t)
	rec.err = errors.New("broker down")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(checkoutLinesSQL)).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(7, 100, 1, "Product A", "10.00", 5))
	mock.ExpectExec(regexp.QuoteMeta(insertOrderSQL)).WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLinesSQL)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrementSQL)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(clearCartSQL)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), order.ID)
	assert.Len(t, rec.events, 1)
}

func TestCheckout_RequiresIdentity(t *testing.T) {
	svc, mock, _ := newCheckout(t)
	_, err := svc.Checkout(context.Background(), model.Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newOrders(t *testing.T) (*OrderService, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rec := &recorder{}
	return NewOrderService(db, repository.NewOrderRepo(db), repository.NewProductRepo(db), rec), mock, rec
}

func orderRow(id, userID uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "total_amount", "status", "created_at"}).
		AddRow(id, userID, "30.00", status, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

func lineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price"}).
		AddRow(1, 55, 100, 3, "10.00")
}

func TestCancel_RestoresStock(t *testing.T) {
	svc, mock, rec := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderPending))
	mock.ExpectQuery(regexp.QuoteMeta(orderLinesSQL)).WithArgs(55).WillReturnRows(lineRows())
	mock.ExpectExec(regexp.QuoteMeta(restoreSQL)).WithArgs(3, 100).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(setStatusSQL)).WithArgs(model.OrderCancelled, 55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := svc.Cancel(context.Background(), customer, 55)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, rec.events, 1)
	assert.Equal(t, queue.EventOrderCancelled, rec.events[0].Type)
}

func TestCancel_NonPendingIsInvalidTransition(t *testing.T) {
	for _, status := range []string{model.OrderProcessing, model.OrderShipped, model.OrderDelivered, model.OrderCancelled} {
		t.Run(status, func(t *testing.T) {
			svc, mock, rec := newOrders(t)
			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, status))
			mock.ExpectRollback()

			_, err := svc.Cancel(context.Background(), customer, 55)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Empty(t, rec.events)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCancel_ForeignOrderLooksMissing(t *testing.T) {
	svc, mock, _ := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderPending))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), stranger, 55)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_AdminMayCancelAnyOrder(t *testing.T) {
	svc, mock, _ := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderPending))
	mock.ExpectQuery(regexp.QuoteMeta(orderLinesSQL)).WithArgs(55).WillReturnRows(lineRows())
	mock.ExpectExec(regexp.QuoteMeta(restoreSQL)).WithArgs(3, 100).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(setStatusSQL)).WithArgs(model.OrderCancelled, 55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.Cancel(context.Background(), admin, 55)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_AdminTransitions(t *testing.T) {
	svc, mock, _ := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderPending))
	mock.ExpectExec(regexp.QuoteMeta(setStatusSQL)).WithArgs(model.OrderProcessing, 55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := svc.UpdateStatus(context.Background(), admin, 55, model.OrderProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderProcessing, o.Status)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderProcessing))
	mock.ExpectRollback()

	_, err = svc.UpdateStatus(context.Background(), admin, 55, model.OrderDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_RejectsUnknownAndNonAdmin(t *testing.T) {
	svc, mock, _ := newOrders(t)

	_, err := svc.UpdateStatus(context.Background(), admin, 55, "lost")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), customer, 55, model.OrderShipped)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_AdminHardDeletesPending(t *testing.T) {
	svc, mock, rec := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderPending))
	mock.ExpectQuery(regexp.QuoteMeta(orderLinesSQL)).WithArgs(55).WillReturnRows(lineRows())
	mock.ExpectExec(regexp.QuoteMeta(restoreSQL)).WithArgs(3, 100).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items WHERE order_id = ?")).WithArgs(55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = ?")).WithArgs(55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), admin, 55))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, rec.events, 1)
}

func TestDelete_AdminCannotDeleteShipped(t *testing.T) {
	svc, mock, _ := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderShipped))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.Delete(context.Background(), admin, 55), ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_OwnerGetsSoftCancel(t *testing.T) {
	svc, mock, _ := newOrders(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(55).WillReturnRows(orderRow(55, 1, model.OrderPending))
	mock.ExpectQuery(regexp.QuoteMeta(orderLinesSQL)).WithArgs(55).WillReturnRows(lineRows())
	mock.ExpectExec(regexp.QuoteMeta(restoreSQL)).WithArgs(3, 100).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(setStatusSQL)).WithArgs(model.OrderCancelled, 55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), customer, 55))
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	stockLockSQL  = "SELECT stock FROM products WHERE id = ? FOR UPDATE"
	cartQtySQL    = "SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE"
	cartUpsertSQL = "ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)"
	cartLineSQL   = "WHERE c.id = ? AND c.user_id = ?"
	cartSetQtySQL = "UPDATE cart_items SET quantity = ? WHERE id = ?"
	cartDeleteSQL = "DELETE FROM cart_items WHERE id = ? AND user_id = ?"
	cartListSQL   = "WHERE c.user_id = ?"
)

func newCart(t *testing.T) (*CartService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCartService(db, repository.NewCartRepo(db), repository.NewProductRepo(db)), mock
}

func TestCartAdd_MergesWithExistingLine(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartQtySQL)).WithArgs(1, 100).WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectQuery(regexp.QuoteMeta(stockLockSQL)).WithArgs(100).WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta(cartUpsertSQL)).WithArgs(1, 100, 2).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartQtySQL)).WithArgs(1, 100).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(stockLockSQL)).WithArgs(100).WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta(cartUpsertSQL)).WithArgs(1, 100, 3).WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	require.NoError(t, svc.Add(context.Background(), 1, 100, 2))
	require.NoError(t, svc.Add(context.Background(), 1, 100, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAdd_LocksCartRowBeforeProduct(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartQtySQL)).WithArgs(1, 100).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(stockLockSQL)).WithArgs(100).WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta(cartUpsertSQL)).WithArgs(1, 100, 1).WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	require.NoError(t, svc.Add(context.Background(), 1, 100, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAdd_MergedQuantityAboveStock(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartQtySQL)).WithArgs(1, 100).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(stockLockSQL)).WithArgs(100).WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(4))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.Add(context.Background(), 1, 100, 3), ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAdd_UnknownProduct(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartQtySQL)).WithArgs(1, 404).WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectQuery(regexp.QuoteMeta(stockLockSQL)).WithArgs(404).WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.Add(context.Background(), 1, 404, 1), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartQuantityMustBePositive(t *testing.T) {
	svc, mock := newCart(t)
	assert.ErrorIs(t, svc.Add(context.Background(), 1, 100, 0), ErrValidation)
	assert.ErrorIs(t, svc.Update(context.Background(), 1, 7, -2), ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var cartLineCols = []string{"id", "user_id", "product_id", "quantity", "name", "price", "stock"}

func TestCartUpdate_AbsoluteQuantity(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartLineSQL)).WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows(cartLineCols).AddRow(7, 1, 100, 2, "Mug", "4.50", 5))
	mock.ExpectExec(regexp.QuoteMeta(cartSetQtySQL)).WithArgs(5, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(cartLineSQL)).WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows(cartLineCols).AddRow(7, 1, 100, 5, "Mug", "4.50", 5))
	mock.ExpectRollback()

	require.NoError(t, svc.Update(context.Background(), 1, 7, 5))
	assert.ErrorIs(t, svc.Update(context.Background(), 1, 7, 6), ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRemove_OwnerFiltered(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectExec(regexp.QuoteMeta(cartDeleteSQL)).WithArgs(7, 2).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.Remove(context.Background(), 2, 7), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartList_Totals(t *testing.T) {
	svc, mock := newCart(t)

	mock.ExpectQuery(regexp.QuoteMeta(cartListSQL)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity", "name", "price", "stock"}).
			AddRow(7, 1, 100, 3, "Product A", "10.00", 5))

	cart, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("30.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_CommitFailureSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(sql.ErrConnDone)

	err = inTx(context.Background(), db, func(*sql.Tx) error { return nil })
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
