package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/storefront-api/internal/model"
)

// ProductRepo encapsulates all database queries related to the catalog.
// Stock mutations that belong to a checkout or a cancellation take the
// caller's transaction.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo constructs a ProductRepo with the provided DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle so flows can open transactions.
func (r *ProductRepo) DB() *sql.DB { return r.db }

const productColumns = `p.id, p.name, COALESCE(p.description, ''), p.price, p.stock,
	COALESCE(p.category, ''), COALESCE(p.brand, ''), COALESCE(p.tags, ''),
	COALESCE(p.image_url, ''), p.featured, p.created_at`

func scanProduct(row interface{ Scan(...any) error }) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.Brand, &p.Tags, &p.ImageURL, &p.Featured, &p.CreatedAt)
	return p, err
}

// GetByID fetches one product.  Returns ErrNotFound when missing.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products p WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// Create inserts a product and fills its ID and CreatedAt.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `INSERT INTO products (name, description, price, stock, category, brand, tags, image_url, featured)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Description, p.Price, p.Stock,
		p.Category, p.Brand, p.Tags, p.ImageURL, p.Featured)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = created
	return nil
}

// Update applies a partial update.
func (r *ProductRepo) Update(ctx context.Context, id uint64, patch model.ProductPatch) error {
	return execUpdate(ctx, r.db, "products", id, productAssignments(patch))
}

// Delete removes a product and the cart, wishlist and review rows that
// point at it.  Products that appear on orders are kept so historical
// orders stay intact; deleting one yields ErrConflict.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var ordered int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM order_items WHERE product_id = ?", id).Scan(&ordered); err != nil {
		return err
	}
	if ordered > 0 {
		return fmt.Errorf("%w: product appears on orders", ErrConflict)
	}
	for _, q := range []string{
		"DELETE FROM cart_items WHERE product_id = ?",
		"DELETE FROM wishlist WHERE product_id = ?",
		"DELETE FROM reviews WHERE product_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// productOrder maps a normalized sort key to its ORDER BY clause.  Every
// clause ends with the id so pages are stable.
var productOrder = map[string]string{
	model.SortName:      "p.name ASC, p.id ASC",
	model.SortPriceLow:  "p.price ASC, p.id ASC",
	model.SortPriceHigh: "p.price DESC, p.id ASC",
	model.SortNewest:    "p.created_at DESC, p.id DESC",
	model.SortFeatured:  "p.featured DESC, p.name ASC, p.id ASC",
}

// Search runs the catalog query: filters, total count, one page of rows
// and the category/brand facets of the whole catalog.
func (r *ProductRepo) Search(ctx context.Context, f model.ProductFilter) (model.ProductPage, error) {
	f.Normalize()
	where := []string{}
	args := []any{}

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where, `(LOWER(p.name) LIKE ? OR LOWER(COALESCE(p.description, '')) LIKE ?
			OR LOWER(COALESCE(p.category, '')) LIKE ? OR LOWER(COALESCE(p.brand, '')) LIKE ?
			OR LOWER(COALESCE(p.tags, '')) LIKE ?)`)
		args = append(args, like, like, like, like, like)
	}
	if f.Category != "" {
		where = append(where, "p.category = ?")
		args = append(args, f.Category)
	}
	if f.Brand != "" {
		where = append(where, "p.brand = ?")
		args = append(args, f.Brand)
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Featured {
		where = append(where, "p.featured = 1")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	page := model.ProductPage{Page: f.Page, PerPage: f.PerPage, Items: []model.Product{}}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p WHERE "+cond, args...).Scan(&page.Total); err != nil {
		return page, err
	}
	page.Pages = model.PageCount(page.Total, f.PerPage)

	dataSQL := "SELECT " + productColumns + " FROM products p WHERE " + cond +
		" ORDER BY " + productOrder[f.Sort] + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), f.PerPage, f.Offset())...)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, p)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}

	if page.Categories, err = r.distinct(ctx, "category"); err != nil {
		return page, err
	}
	if page.Brands, err = r.distinct(ctx, "brand"); err != nil {
		return page, err
	}
	return page, nil
}

// distinct lists the non-empty values of a facet column over the whole
// catalog.  column is one of the fixed facet names.
func (r *ProductRepo) distinct(ctx context.Context, column string) ([]string, error) {
	q := "SELECT DISTINCT " + column + " FROM products WHERE " + column + " IS NOT NULL AND " + column + " <> '' ORDER BY " + column
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// StockForUpdateTx reads a product's stock and locks the row until the
// transaction ends.
func (r *ProductRepo) StockForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (int, error) {
	var stock int
	err := tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ? FOR UPDATE", id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return stock, err
}

// ErrStockExhausted is returned by DecrementStockTx when the row no
// longer holds enough units.
var ErrStockExhausted = errors.New("stock exhausted")

// DecrementStockTx removes qty units.  The update only applies while
// stock >= qty, so concurrent writers cannot push stock below zero.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?", qty, id, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStockExhausted
	}
	return nil
}

// RestoreStockTx adds qty units back.  A product deleted since the order
// was placed is skipped.
func (r *ProductRepo) RestoreStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	_, err := tx.ExecContext(ctx, "UPDATE products SET stock = stock + ? WHERE id = ?", qty, id)
	return err
}
