package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/repository"
)

// WishlistHandler serves the caller's saved products.
type WishlistHandler struct {
	Wishlist *repository.WishlistRepo
	Products *repository.ProductRepo
}

// List handles GET /api/wishlist.
func (h *WishlistHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Wishlist.ListByUser(ctx, who.UserID)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /api/wishlist/:id.
func (h *WishlistHandler) Get(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	item, err := h.Wishlist.GetForUser(ctx, id, who.UserID)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	return c.JSON(http.StatusOK, item)
}

// Add handles POST /api/wishlist with {"product_id": n}.
func (h *WishlistHandler) Add(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	var req struct {
		ProductID uint64 `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return badRequest(c, "product_id required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Products.GetByID(ctx, req.ProductID); err != nil {
		return fail(c, "product", err)
	}
	id, err := h.Wishlist.Add(ctx, who.UserID, req.ProductID)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "product already in wishlist"})
	}
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "wishlist_id": id, "message": "added to wishlist"})
}

// Remove handles DELETE /api/wishlist/:id.
func (h *WishlistHandler) Remove(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "wishlist item", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Wishlist.DeleteForUser(ctx, id, who.UserID); err != nil {
		return fail(c, "wishlist item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "item removed from wishlist"})
}
