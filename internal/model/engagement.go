package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WishlistItem is a product a user saved for later.  Product is filled
// with the current catalog row when it still exists.
type WishlistItem struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	ProductID uint64    `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
	Product   *Product  `json:"product"`
}

// Review ratings are whole stars in this range.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a user's rating of a product; one per (user, product).
type Review struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username"`
	ProductID uint64    `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewPatch is the partial update of a review.
type ReviewPatch struct {
	Rating  *int
	Comment *string
}

// Empty reports whether no field is set.
func (p ReviewPatch) Empty() bool { return p.Rating == nil && p.Comment == nil }

// RatingSummary aggregates the reviews of one product.
type RatingSummary struct {
	Average decimal.Decimal `json:"average_rating"`
	Count   int64           `json:"total_reviews"`
}

// Notification types.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
	NotifyAdmin   = "admin"
)

// ValidNotificationType reports whether t is a known type.
func ValidNotificationType(t string) bool {
	switch t {
	case NotifyInfo, NotifySuccess, NotifyWarning, NotifyError, NotifyAdmin:
		return true
	}
	return false
}

// Notification is a message addressed to one user.
type Notification struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
