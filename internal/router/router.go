// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
)

// RegisterRoutes registers routes that sit outside /api.  Currently it
// exposes only the health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterPublic registers the endpoints guests may call.  A token, when
// present, still identifies the caller so the limiter can key on the
// user and GET /api/reviews can serve admins the full list.
func RegisterPublic(e *echo.Echo, a *handler.AuthHandler, p *handler.ProductHandler, r *handler.ReviewHandler,
	jwtSecret string, limiter echo.MiddlewareFunc, cache echo.MiddlewareFunc) {
	g := e.Group("/api", middleware.JWTOptional(jwtSecret), limiter)

	// action: login | register | logout | check
	g.POST("/auth", a.Post)
	g.POST("/auth/refresh", a.Refresh)

	g.GET("/products", p.List, cache)
	g.GET("/products/:id", p.Get, cache)

	g.GET("/reviews", r.List)
	g.GET("/reviews/:id", r.Get)
}
