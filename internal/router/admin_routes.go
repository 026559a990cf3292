package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /api.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, p *handler.ProductHandler, u *handler.UserHandler, n *handler.NotificationHandler,
	jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		limiter,
	)

	// ---- Catalog ----
	g.POST("/products", p.Create)
	g.PUT("/products/:id", p.Update)
	g.PATCH("/products/:id", p.Update)
	g.DELETE("/products/:id", p.Delete)

	// ---- Users ----
	g.GET("/users", u.List)
	g.POST("/users", u.Create)
	g.DELETE("/users/:id", u.Delete)

	g.POST("/notifications", n.Create)
}
