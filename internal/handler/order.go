package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/service"
)

// OrderHandler serves orders: reads go straight to the repository, state
// changes through the checkout and lifecycle services.  Checkout and
// cancellation change stock, so both purge the catalog cache.
type OrderHandler struct {
	Orders   *repository.OrderRepo
	Checkout *service.CheckoutService
	Flow     *service.OrderService
	Cache    Purger
}

// List handles GET /api/orders: the caller's orders, or every order for an
// admin.
func (h *OrderHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "order", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	var orders []model.Order
	if who.IsAdmin() {
		orders, err = h.Orders.ListAll(ctx)
	} else {
		orders, err = h.Orders.ListByUser(ctx, who.UserID)
	}
	if err != nil {
		return fail(c, "order", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders, "total": len(orders)})
}

// Get handles GET /api/orders/:id.  Orders of other users are reported
// as missing.
func (h *OrderHandler) Get(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "order", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "order", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	o, err := h.Orders.GetWithLines(ctx, id)
	if err == nil && !who.CanAccess(o.UserID) {
		err = repository.ErrNotFound
	}
	if err != nil {
		return fail(c, "order", err)
	}
	return c.JSON(http.StatusOK, o)
}

// Create handles POST /api/orders by checking out the caller's cart.
func (h *OrderHandler) Create(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "order", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	o, err := h.Checkout.Checkout(ctx, who)
	if err != nil {
		return fail(c, "product", err)
	}
	purge(c, h.Cache)
	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"order_id":     o.ID,
		"total_amount": o.TotalAmount,
		"items":        o.Items,
		"message":      "order placed successfully",
	})
}

// Update handles PUT /api/orders/:id with {"status": ...}.
func (h *OrderHandler) Update(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "order", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "order", err)
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		return badRequest(c, "status required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	o, err := h.Flow.UpdateStatus(ctx, who, id, status)
	if err != nil {
		return fail(c, "order", err)
	}
	if status == model.OrderCancelled {
		purge(c, h.Cache)
	}
	return c.JSON(http.StatusOK, o)
}

// Delete handles DELETE /api/orders/:id: admins delete a pending order,
// owners cancel it.
func (h *OrderHandler) Delete(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "order", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "order", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Flow.Delete(ctx, who, id); err != nil {
		return fail(c, "order", err)
	}
	purge(c, h.Cache)
	msg := "order cancelled"
	if who.IsAdmin() {
		msg = "order deleted"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}
