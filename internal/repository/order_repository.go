package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/storefront-api/internal/model"
)

// OrderRepo provides CRUD operations for orders and their lines.  Orders
// are only created by checkout, inside the checkout transaction.  All
// timestamps are stored in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so flows can open transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new order within the scope of an existing
// transaction and populates its ID and CreatedAt.  The caller must commit
// or rollback the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	o.CreatedAt = time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO orders (user_id, total_amount, status, created_at) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.UserID, o.TotalAmount, o.Status, o.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// CreateLinesBulkTx inserts all order lines in a single statement.  Each
// line carries the unit price captured at checkout.  Passing an empty
// slice has no effect.
func (r *OrderRepo) CreateLinesBulkTx(ctx context.Context, tx *sql.Tx, orderID uint64, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, quantity, price) VALUES `
	args := make([]any, 0, len(lines)*4)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, orderID, l.ProductID, l.Quantity, l.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Username, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	return r.list(ctx, `SELECT o.id, o.user_id, u.username, o.total_amount, o.status, o.created_at
	                    FROM orders o JOIN users u ON u.id = o.user_id
	                    WHERE o.user_id = ?
	                    ORDER BY o.created_at DESC, o.id DESC`, userID)
}

// ListAll returns every order with the buyer's username, newest first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT o.id, o.user_id, u.username, o.total_amount, o.status, o.created_at
	                    FROM orders o JOIN users u ON u.id = o.user_id
	                    ORDER BY o.created_at DESC, o.id DESC`)
}

// GetWithLines loads an order and its lines.  The product name is taken
// from the catalog when the product still exists.
func (r *OrderRepo) GetWithLines(ctx context.Context, id uint64) (model.Order, error) {
	var o model.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT o.id, o.user_id, u.username, o.total_amount, o.status, o.created_at
		 FROM orders o JOIN users u ON u.id = o.user_id WHERE o.id = ?`, id).
		Scan(&o.ID, &o.UserID, &o.Username, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price
		 FROM order_items oi LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ? ORDER BY oi.id`, id)
	if err != nil {
		return o, err
	}
	defer rows.Close()
	o.Items = []model.OrderLine{}
	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Price); err != nil {
			return o, err
		}
		o.Items = append(o.Items, l)
	}
	return o, rows.Err()
}

// GetForUpdateTx loads the order row and locks it until the transaction
// ends.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error) {
	var o model.Order
	err := tx.QueryRowContext(ctx,
		"SELECT id, user_id, total_amount, status, created_at FROM orders WHERE id = ? FOR UPDATE", id).
		Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

// LinesTx returns the order lines inside a transaction.
func (r *OrderRepo) LinesTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderLine, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = ? ORDER BY id", orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OrderLine
	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateStatusTx writes a new status.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id = ?", status, id)
	return err
}

// DeleteTx removes an order and its lines.
func (r *OrderRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	return err
}
