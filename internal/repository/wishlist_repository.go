package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/storefront-api/internal/model"
)

// WishlistRepo provides access to the wishlist table.
type WishlistRepo struct {
	db *sql.DB
}

// NewWishlistRepo constructs a WishlistRepo with the provided DB handle.
func NewWishlistRepo(db *sql.DB) *WishlistRepo { return &WishlistRepo{db: db} }

// wishlistSelect joins the current product row; products deleted since
// the item was added come back as a nil Product.
const wishlistSelect = `SELECT w.id, w.user_id, w.product_id, w.added_at,
	p.id, p.name, COALESCE(p.description, ''), p.price, p.stock,
	COALESCE(p.category, ''), COALESCE(p.brand, ''), COALESCE(p.tags, ''),
	COALESCE(p.image_url, ''), p.featured, p.created_at
	FROM wishlist w LEFT JOIN products p ON p.id = w.product_id`

func scanWishlist(row interface{ Scan(...any) error }) (model.WishlistItem, error) {
	var (
		w   model.WishlistItem
		p   model.Product
		pid sql.NullInt64
	)
	var (
		name, desc, cat, brand, tags, img sql.NullString
		price                             sql.NullString
		stock                             sql.NullInt64
		featured                          sql.NullBool
		created                           sql.NullTime
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.ProductID, &w.AddedAt,
		&pid, &name, &desc, &price, &stock, &cat, &brand, &tags, &img, &featured, &created); err != nil {
		return w, err
	}
	if pid.Valid {
		p.ID = uint64(pid.Int64)
		p.Name, p.Description = name.String, desc.String
		if err := p.Price.Scan(price.String); err != nil {
			return w, err
		}
		p.Stock = int(stock.Int64)
		p.Category, p.Brand, p.Tags, p.ImageURL = cat.String, brand.String, tags.String, img.String
		p.Featured = featured.Bool
		p.CreatedAt = created.Time
		w.Product = &p
	}
	return w, nil
}

// ListByUser returns the user's wishlist, most recently added first.
func (r *WishlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx, wishlistSelect+" WHERE w.user_id = ? ORDER BY w.added_at DESC, w.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WishlistItem{}
	for rows.Next() {
		w, err := scanWishlist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetForUser returns one wishlist item owned by the user.
func (r *WishlistRepo) GetForUser(ctx context.Context, id, userID uint64) (model.WishlistItem, error) {
	w, err := scanWishlist(r.db.QueryRowContext(ctx, wishlistSelect+" WHERE w.id = ? AND w.user_id = ?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return w, ErrNotFound
	}
	return w, err
}

// Add saves a product for the user.  A product already on the list
// yields ErrDuplicate.
func (r *WishlistRepo) Add(ctx context.Context, userID, productID uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO wishlist (user_id, product_id) VALUES (?, ?)", userID, productID)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// DeleteForUser removes one item owned by the user.
func (r *WishlistRepo) DeleteForUser(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM wishlist WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
