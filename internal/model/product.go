package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry in the `products` table.  Price is a
// non-negative DECIMAL(10,2) and Stock is the number of purchasable
// units; stock is decremented by checkout and restored by cancellation.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – display name (required).
//	Description – free text.
//	Price       – unit price.
//	Stock       – units available.
//	Category    – optional category used for filtering.
//	Brand       – optional brand used for filtering.
//	Tags        – optional comma separated tags, searched as text.
//	ImageURL    – optional image location.
//	Featured    – featured flag.
//	CreatedAt   – creation timestamp, drives "newest" ordering.
type Product struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Tags        string          `json:"tags"`
	ImageURL    string          `json:"image_url"`
	Featured    bool            `json:"featured"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProductPatch is the partial update accepted by the admin update
// endpoint.  Each non-nil field replaces the stored value.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	Brand       *string          `json:"brand"`
	Tags        *string          `json:"tags"`
	ImageURL    *string          `json:"image_url"`
	Featured    *bool            `json:"featured"`
}

// Empty reports whether no field is set.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil &&
		p.Category == nil && p.Brand == nil && p.Tags == nil && p.ImageURL == nil && p.Featured == nil
}

// Catalog sort keys.  Unknown values fall back to SortName.
const (
	SortName      = "name"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNewest    = "newest"
	SortFeatured  = "featured"
)

// Catalog paging bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductFilter holds the catalog query.  All set filters are combined
// with AND.
type ProductFilter struct {
	Search   string
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Featured bool
	Sort     string
	Page     int
	PerPage  int
}

// Normalize clamps paging and resolves sort aliases.  Page is capped so
// Offset stays within a 32-bit OFFSET.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPageSize
	}
	if f.PerPage > MaxPageSize {
		f.PerPage = MaxPageSize
	}
	if last := math.MaxInt32 / f.PerPage; f.Page > last {
		f.Page = last
	}
	switch f.Sort {
	case "price_asc":
		f.Sort = SortPriceLow
	case "price_desc":
		f.Sort = SortPriceHigh
	case SortName, SortPriceLow, SortPriceHigh, SortNewest, SortFeatured:
	default:
		f.Sort = SortName
	}
}

// Offset returns the row offset of the current page.
func (f ProductFilter) Offset() int { return (f.Page - 1) * f.PerPage }

// ProductPage is one page of a catalog query plus the facets of the
// whole catalog.
type ProductPage struct {
	Items      []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	Pages      int       `json:"pages"`
	Categories []string  `json:"categories"`
	Brands     []string  `json:"brands"`
}

// PageCount returns the number of pages needed for total rows.
func PageCount(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
