package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
)

// Store bundles the handlers of signed-in users.
type Store struct {
	Auth          *handler.AuthHandler
	Cart          *handler.CartHandler
	Orders        *handler.OrderHandler
	Wishlist      *handler.WishlistHandler
	Reviews       *handler.ReviewHandler
	Notifications *handler.NotificationHandler
	Users         *handler.UserHandler
}

// RegisterStore registers the endpoints that need a valid JWT.  Any role
// is accepted; handlers scope the data to the caller and let admins see
// everything where that applies.
func RegisterStore(e *echo.Echo, s Store, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/api", middleware.JWTAuth(jwtSecret), limiter)

	g.GET("/auth/me", s.Auth.Me)

	g.GET("/cart", s.Cart.List)
	g.POST("/cart", s.Cart.Add)
	g.PUT("/cart/:id", s.Cart.Update)
	g.DELETE("/cart/:id", s.Cart.Remove)

	// POST checks out the cart.  PUT changes status: admins move orders
	// forward, owners may only cancel.
	g.GET("/orders", s.Orders.List)
	g.POST("/orders", s.Orders.Create)
	g.GET("/orders/:id", s.Orders.Get)
	g.PUT("/orders/:id", s.Orders.Update)
	g.DELETE("/orders/:id", s.Orders.Delete)

	g.GET("/wishlist", s.Wishlist.List)
	g.POST("/wishlist", s.Wishlist.Add)
	g.GET("/wishlist/:id", s.Wishlist.Get)
	g.DELETE("/wishlist/:id", s.Wishlist.Remove)

	g.POST("/reviews", s.Reviews.Create)
	g.PUT("/reviews/:id", s.Reviews.Update)
	g.DELETE("/reviews/:id", s.Reviews.Delete)

	g.GET("/notifications", s.Notifications.List)
	g.PUT("/notifications", s.Notifications.MarkAllRead)
	g.GET("/notifications/:id", s.Notifications.Get)
	g.PUT("/notifications/:id", s.Notifications.MarkRead)
	g.DELETE("/notifications/:id", s.Notifications.Delete)

	g.GET("/users/:id", s.Users.Get)
	g.PUT("/users/:id", s.Users.Update)
}
