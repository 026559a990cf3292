package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/model"
)

// CartRepo provides access to the cart_items table.  Each user has at
// most one row per product (unique key on user_id, product_id).
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the given database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// ListByUser returns the user's cart lines joined with current product
// name, price and stock, oldest first.
func (r *CartRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CartLine, error) {
	const q = `SELECT c.id, c.user_id, c.product_id, c.quantity, p.name, p.price, p.stock
	           FROM cart_items c
	           JOIN products p ON p.id = c.product_id
	           WHERE c.user_id = ?
	           ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.Name, &l.Price, &l.Stock); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LinesForCheckoutTx loads every cart line of the user with the current
// catalog row of its product and locks both until the transaction ends.
// A line whose product no longer exists yields ErrNotFound.
func (r *CartRepo) LinesForCheckoutTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]model.CartLine, error) {
	const q = `SELECT c.id, c.product_id, c.quantity, p.name, p.price, p.stock
	           FROM cart_items c
	           LEFT JOIN products p ON p.id = c.product_id
	           WHERE c.user_id = ?
	           ORDER BY c.product_id
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CartLine
	for rows.Next() {
		var (
			l     model.CartLine
			name  sql.NullString
			price decimal.NullDecimal
			stock sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity, &name, &price, &stock); err != nil {
			return nil, err
		}
		if !name.Valid {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, ErrNotFound)
		}
		l.UserID = userID
		l.Name = name.String
		l.Price = price.Decimal
		l.Stock = int(stock.Int64)
		out = append(out, l)
	}
	return out, rows.Err()
}

// QuantityTx returns the quantity already in the cart for (user,
// product), or 0 when there is no line.
func (r *CartRepo) QuantityTx(ctx context.Context, tx *sql.Tx, userID, productID uint64) (int, error) {
	var qty int
	err := tx.QueryRowContext(ctx,
		"SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE",
		userID, productID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

// UpsertTx adds qty to the (user, product) line, creating it if needed.
func (r *CartRepo) UpsertTx(ctx context.Context, tx *sql.Tx, userID, productID uint64, qty int) error {
	const q = `INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`
	_, err := tx.ExecContext(ctx, q, userID, productID, qty)
	return err
}

// LineForUserTx loads one line owned by the user together with the
// product's stock, locking both rows.
func (r *CartRepo) LineForUserTx(ctx context.Context, tx *sql.Tx, lineID, userID uint64) (model.CartLine, error) {
	const q = `SELECT c.id, c.user_id, c.product_id, c.quantity, p.name, p.price, p.stock
	           FROM cart_items c
	           JOIN products p ON p.id = c.product_id
	           WHERE c.id = ? AND c.user_id = ?
	           FOR UPDATE`
	var l model.CartLine
	err := tx.QueryRowContext(ctx, q, lineID, userID).Scan(
		&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.Name, &l.Price, &l.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return l, ErrNotFound
	}
	return l, err
}

// SetQuantityTx replaces the quantity of a line.
func (r *CartRepo) SetQuantityTx(ctx context.Context, tx *sql.Tx, lineID uint64, qty int) error {
	_, err := tx.ExecContext(ctx, "UPDATE cart_items SET quantity = ? WHERE id = ?", qty, lineID)
	return err
}

// DeleteForUser removes a line owned by the user.  A line that does not
// exist or belongs to someone else yields ErrNotFound.
func (r *CartRepo) DeleteForUser(ctx context.Context, lineID, userID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = ? AND user_id = ?", lineID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearTx deletes every line of the user.
func (r *CartRepo) ClearTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID)
	return err
}
