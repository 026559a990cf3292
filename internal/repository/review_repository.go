package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/model"
)

// ReviewRepo provides access to the reviews table.  A user may review a
// product once (unique key on user_id, product_id); a second review
// overwrites the first.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo constructs a ReviewRepo with the provided DB handle.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewSelect = `SELECT r.id, r.user_id, u.username, r.product_id, r.rating, COALESCE(r.comment, ''), r.created_at
	FROM reviews r JOIN users u ON u.id = r.user_id`

func scanReview(row interface{ Scan(...any) error }) (model.Review, error) {
	var rv model.Review
	err := row.Scan(&rv.ID, &rv.UserID, &rv.Username, &rv.ProductID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}

// ListByProduct returns the reviews of a product, newest first.
func (r *ReviewRepo) ListByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	return r.list(ctx, reviewSelect+" WHERE r.product_id = ? ORDER BY r.created_at DESC, r.id DESC", productID)
}

// ListAll returns every review, newest first.
func (r *ReviewRepo) ListAll(ctx context.Context) ([]model.Review, error) {
	return r.list(ctx, reviewSelect+" ORDER BY r.created_at DESC, r.id DESC")
}

func (r *ReviewRepo) list(ctx context.Context, q string, args ...any) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// GetByID fetches one review.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+" WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rv, ErrNotFound
	}
	return rv, err
}

// Upsert stores the user's review of a product, replacing the rating and
// comment of an earlier one.  created is false when a review already
// existed; id is the review's id either way.
func (r *ReviewRepo) Upsert(ctx context.Context, userID, productID uint64, rating int, comment string) (id uint64, created bool, err error) {
	const q = `INSERT INTO reviews (user_id, product_id, rating, comment) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), rating = VALUES(rating), comment = VALUES(comment)`
	res, err := r.db.ExecContext(ctx, q, userID, productID, rating, comment)
	if err != nil {
		return 0, false, err
	}
	last, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	// MySQL reports 1 for an insert, 2 for a changed row and 0 for an
	// identical one.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	return uint64(last), n == 1, nil
}

// Update applies a partial update.
func (r *ReviewRepo) Update(ctx context.Context, id uint64, patch model.ReviewPatch) error {
	return execUpdate(ctx, r.db, "reviews", id, reviewAssignments(patch))
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary returns the average rating, rounded to one decimal, and the
// number of reviews of a product.  A product without reviews averages 0.
func (r *ReviewRepo) Summary(ctx context.Context, productID uint64) (model.RatingSummary, error) {
	var (
		s   model.RatingSummary
		avg decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT AVG(rating), COUNT(*) FROM reviews WHERE product_id = ?", productID).Scan(&avg, &s.Count)
	if err != nil {
		return s, err
	}
	s.Average = avg.Decimal.Round(1)
	return s, nil
}
