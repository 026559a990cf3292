package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/service"
)

// CartHandler exposes the caller's cart.
type CartHandler struct {
	Carts *service.CartService
}

type cartReq struct {
	ProductID uint64 `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

// List handles GET /api/cart.
func (h *CartHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "cart", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cart, err := h.Carts.List(ctx, who.UserID)
	if err != nil {
		return fail(c, "cart", err)
	}
	return c.JSON(http.StatusOK, cart)
}

// Add handles POST /api/cart.  quantity defaults to 1 and is added to any
// existing line for the product.
func (h *CartHandler) Add(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "cart", err)
	}
	var req cartReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ProductID == 0 {
		return badRequest(c, "product_id required")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Carts.Add(ctx, who.UserID, req.ProductID, qty); err != nil {
		return fail(c, "product", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "item added to cart"})
}

// Update handles PUT /api/cart/:id with an absolute quantity.
func (h *CartHandler) Update(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "cart item", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "cart item", err)
	}
	var req cartReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Quantity == nil {
		return badRequest(c, "quantity required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Carts.Update(ctx, who.UserID, id, *req.Quantity); err != nil {
		return fail(c, "cart item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "cart updated"})
}

// Remove handles DELETE /api/cart/:id.
func (h *CartHandler) Remove(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "cart item", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "cart item", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Carts.Remove(ctx, who.UserID, id); err != nil {
		return fail(c, "cart item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "item removed from cart"})
}
