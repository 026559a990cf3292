package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/storefront-api/internal/model"
)

// CartStore is everything the cart flows need from storage.
type CartStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.CartLine, error)
	QuantityTx(ctx context.Context, tx *sql.Tx, userID, productID uint64) (int, error)
	UpsertTx(ctx context.Context, tx *sql.Tx, userID, productID uint64, qty int) error
	LineForUserTx(ctx context.Context, tx *sql.Tx, lineID, userID uint64) (model.CartLine, error)
	SetQuantityTx(ctx context.Context, tx *sql.Tx, lineID uint64, qty int) error
	DeleteForUser(ctx context.Context, lineID, userID uint64) error
}

// StockReader reads and locks a product's stock.
type StockReader interface {
	StockForUpdateTx(ctx context.Context, tx *sql.Tx, productID uint64) (int, error)
}

// CartService mutates carts while keeping every line within stock.
type CartService struct {
	db       *sql.DB
	carts    CartStore
	products StockReader
}

// NewCartService wires the cart flows to their stores.
func NewCartService(db *sql.DB, carts CartStore, products StockReader) *CartService {
	return &CartService{db: db, carts: carts, products: products}
}

// List returns the user's cart with subtotals and total.
func (s *CartService) List(ctx context.Context, userID uint64) (model.Cart, error) {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	return model.NewCart(lines), nil
}

// Add puts qty units of a product in the cart, merging with an existing
// line.  The merged quantity may not exceed stock.  The cart row is locked
// before the product row, the same order checkout uses.
func (s *CartService) Add(ctx context.Context, userID, productID uint64, qty int) error {
	if qty <= 0 {
		return Invalid("quantity must be positive")
	}
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		have, err := s.carts.QuantityTx(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		stock, err := s.products.StockForUpdateTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		if have+qty > stock {
			return fmt.Errorf("%w (available: %d, in cart: %d)", ErrInsufficientStock, stock, have)
		}
		return s.carts.UpsertTx(ctx, tx, userID, productID, qty)
	})
}

// Update sets the quantity of one of the user's lines.
func (s *CartService) Update(ctx context.Context, userID, lineID uint64, qty int) error {
	if qty <= 0 {
		return Invalid("quantity must be positive")
	}
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		line, err := s.carts.LineForUserTx(ctx, tx, lineID, userID)
		if err != nil {
			return err
		}
		if qty > line.Stock {
			return insufficient(line.Name, line.Stock)
		}
		return s.carts.SetQuantityTx(ctx, tx, lineID, qty)
	})
}

// Remove deletes one of the user's lines.
func (s *CartService) Remove(ctx context.Context, userID, lineID uint64) error {
	return s.carts.DeleteForUser(ctx, lineID, userID)
}
